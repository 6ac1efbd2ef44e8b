package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// rebalanceCmd represents the rebalance command
var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Run the weekly rebalance against the stored feature table",
	Long: `Runs the weekly selection as of the given date without re-ingesting
run files. Uses the feature table as last built by the daily update,
writes the membership vintage, the constituent exports, the weekly
report, and rebuilds the index level series.

Example:
  go run ./cmd/rte rebalance
  go run ./cmd/rte rebalance --date 2025-07-14`,
	RunE: runRebalance,
}

var rebalanceDateFlag string

func init() {
	rootCmd.AddCommand(rebalanceCmd)

	rebalanceCmd.Flags().StringVar(&rebalanceDateFlag, "date", "", "rebalance date (YYYY-MM-DD, default: today)")
}

func runRebalance(cmd *cobra.Command, args []string) error {
	day := contracts.NormalizeDate(time.Now().UTC())
	if rebalanceDateFlag != "" {
		parsed, err := contracts.ParseDate(rebalanceDateFlag)
		if err != nil {
			return fmt.Errorf("invalid rebalance date: %w", err)
		}
		day = parsed
	}

	fmt.Println("=== RTE-100 Weekly Rebalance ===")
	fmt.Printf("Rebalance date: %s\n\n", contracts.FormatDate(day))

	c, err := initComponents(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	outcome, err := c.pipeline.Rebalance(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("rebalance failed: %w", err)
	}

	printRebalanceOutcome(outcome)
	return nil
}
