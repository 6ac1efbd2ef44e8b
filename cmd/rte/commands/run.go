package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline, optionally with the weekly rebalance",
	Long: `Runs the daily stages: ingest every pruned run file under the runs
directory, estimate the daily revenue proxy, and rebuild the rolling
feature table.

With a rebalance flag it also runs the weekly stage: constituent
selection, exports, the markdown report, and the index level rebuild.

Flags:
  --rebalance-date   run the weekly rebalance as of this date
  --rebalance-today  run the weekly rebalance as of today

Example:
  go run ./cmd/rte run
  go run ./cmd/rte run --rebalance-date 2025-07-14
  go run ./cmd/rte run --rebalance-today`,
	RunE: runPipeline,
}

var (
	// Flags
	runRebalanceDate  string
	runRebalanceToday bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runRebalanceDate, "rebalance-date", "", "weekly rebalance date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runRebalanceToday, "rebalance-today", false, "weekly rebalance as of today")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if runRebalanceDate != "" && runRebalanceToday {
		return fmt.Errorf("--rebalance-date and --rebalance-today are mutually exclusive")
	}

	runConfig := pipeline.RunConfig{}
	if runRebalanceDate != "" {
		day, err := contracts.ParseDate(runRebalanceDate)
		if err != nil {
			return fmt.Errorf("invalid rebalance date: %w", err)
		}
		runConfig.Rebalance = true
		runConfig.RebalanceDate = day
	}
	if runRebalanceToday {
		runConfig.Rebalance = true
		runConfig.RebalanceDate = contracts.NormalizeDate(time.Now().UTC())
	}

	fmt.Println("=== RTE-100 Index Pipeline ===")
	if runConfig.Rebalance {
		fmt.Printf("Rebalance date: %s\n", contracts.FormatDate(runConfig.RebalanceDate))
	}
	fmt.Println()

	c, err := initComponents(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.pipeline.Run(cmd.Context(), runConfig)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	printRunResult(result)
	return nil
}
