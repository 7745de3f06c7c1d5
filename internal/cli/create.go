package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trendscout-net/trendscout/internal/daemon"
	"github.com/trendscout-net/trendscout/internal/domain"
)

// localOwner scopes tasks created from the command line, keeping them
// separate from any API user's tasks.
const localOwner = "local"

func init() {
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create AGENT [FIELD=VALUE...]",
	Short: "Submit a task for an agent or crew",
	Long: `Submit a task. The agent's input is given as FIELD=VALUE pairs:

  trendscout create trend_analyzer query="AI developer tools"
  trendscout create trend_to_post_crew topic="open source LLMs"

Run 'trendscout agents' to see the available agents and their inputs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	kind := domain.AgentKind(args[0])
	input := domain.Payload{}
	for _, arg := range args[1:] {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return fmt.Errorf("input %q is not FIELD=VALUE", arg)
		}
		input[field] = value
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	task, err := d.Service.Create(context.Background(), localOwner, kind, input)
	if err != nil {
		return err
	}

	fmt.Printf("Created task %s (%s)\n", task.ID, task.AgentKind)
	fmt.Printf("Follow it with: trendscout show %s\n", shortID(task.ID))
	return nil
}
