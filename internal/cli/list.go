package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trendscout-net/trendscout/internal/daemon"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks created from this machine",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	list, err := d.Service.List(localOwner)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No tasks yet. Run 'trendscout create <agent>' to submit one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tSTATUS\tSTEPS\tCREATED")
	for _, task := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			shortID(task.ID),
			task.AgentKind,
			task.Status,
			len(task.IntermediateSteps),
			task.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}
