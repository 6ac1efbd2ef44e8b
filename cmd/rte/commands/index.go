package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index level series operations",
	Long: `Operations on the compounded index level series.

Subcommands:
  rebuild - rebuild the series from stored snapshots and membership

Example:
  go run ./cmd/rte index rebuild`,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the level series from stored history",
	Long: `Recomputes the full index level series from the snapshot table and
the complete membership history, replaces the stored series, and
rewrites the level exports.

Example:
  go run ./cmd/rte index rebuild`,
	RunE: runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RTE-100 Index Rebuild ===")
	fmt.Println()

	c, err := initComponents(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	outcome, err := c.pipeline.RebuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	printIndexOutcome(outcome)
	return nil
}
