package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trendscout-net/trendscout/internal/daemon"
)

func init() {
	workerCmd.Flags().IntVar(&workerCount, "count", 0, "Worker count (overrides config)")
	rootCmd.AddCommand(workerCmd)
}

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the worker pool",
	Long: `Run the worker pool without the API server. Point it at the same
Redis and storage directory as a serving daemon to scale out execution.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	if workerCount > 0 {
		cfg.Worker.Count = workerCount
	}

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	d.RunWorkers(context.Background())
	return nil
}
