package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch one day of snapshot data from the collector endpoint",
	Long: `Fetches the raw game list from the configured collector endpoint and
writes it as a pruned run file under the runs directory. The file is
picked up by the next "run" invocation.

Requires COLLECTOR_ENABLED=true and COLLECTOR_ENDPOINT in the
environment. No database connection is needed.

Example:
  go run ./cmd/rte collect
  go run ./cmd/rte collect --date 2025-07-14`,
	RunE: runCollect,
}

var collectDate string

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectDate, "date", "", "collection date (YYYY-MM-DD, default: today)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RTE-100 Collect ===")
	fmt.Println()

	date := contracts.NormalizeDate(time.Now().UTC())
	if collectDate != "" {
		parsed, err := contracts.ParseDate(collectDate)
		if err != nil {
			return fmt.Errorf("invalid collection date: %w", err)
		}
		date = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	collector, err := newCollector(cfg, log)
	if err != nil {
		return err
	}

	path, err := collector.CollectDaily(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("collect failed: %w", err)
	}

	fmt.Printf("Collected: %s\n", path)
	return nil
}
