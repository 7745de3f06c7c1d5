package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trendscout-net/trendscout/internal/daemon"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show TASK",
	Short: "Show a task's status, steps and result",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	task, err := resolveTask(d, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", task.ID)
	fmt.Printf("Agent:    %s\n", task.AgentKind)
	fmt.Printf("Status:   %s\n", task.Status)
	fmt.Printf("Created:  %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:  %s\n", task.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(task.IntermediateSteps) > 0 {
		fmt.Println("\nSteps:")
		for i, step := range task.IntermediateSteps {
			fmt.Printf("  %d. [%s] %s\n", i+1, step.Agent, step.TaskDescription)
			fmt.Printf("     %s\n", step.Output)
		}
	}

	if task.Error != "" {
		fmt.Printf("\nError: %s\n", task.Error)
	}
	if task.Result != nil {
		out, err := json.MarshalIndent(task.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("\nResult:\n%s\n", out)
	}
	return nil
}
