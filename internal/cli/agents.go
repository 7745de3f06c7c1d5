package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trendscout-net/trendscout/internal/agent"
)

func init() {
	rootCmd.AddCommand(agentsCmd)
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agents and crews",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	catalog, err := agent.DefaultCatalog()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tINPUT\tROLE")
	for _, kind := range catalog.Kinds() {
		required, _ := catalog.RequiredField(kind)
		role := "multi-step crew"
		if def, ok := catalog.Definition(kind); ok {
			role = def.Role
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, required, role)
	}
	return w.Flush()
}
