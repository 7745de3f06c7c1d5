// Package cli implements the TrendScout command-line interface using Cobra.
// Each subcommand maps to a daemon capability (serve, worker, create, list).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trendscout",
	Short: "TrendScout — trend research and content agents",
	Long: `TrendScout runs AI agents that research trends, draft social posts
and schedule them, backed by a durable task queue.

Submit work with 'trendscout create', follow it with 'trendscout show',
or run the full API server with 'trendscout serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
