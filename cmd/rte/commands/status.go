package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored pipeline state",
	Long: `Prints row counts and latest dates for every pipeline table.

Displayed:
- snapshot rows and the most recent snapshot date
- feature rows
- membership rows and the most recent rebalance date
- index level points and the current level

Example:
  go run ./cmd/rte status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RTE-100 Status ===")
	fmt.Println()

	ctx := cmd.Context()

	c, err := initComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	snapCount, err := c.snapshots.Count(ctx)
	if err != nil {
		return fmt.Errorf("count snapshots: %w", err)
	}
	snapLatest, snapOK, err := c.snapshots.LatestDate(ctx)
	if err != nil {
		return fmt.Errorf("latest snapshot date: %w", err)
	}
	if snapOK {
		fmt.Printf("Snapshots: %d rows (latest %s)\n", snapCount, contracts.FormatDate(snapLatest))
	} else {
		fmt.Printf("Snapshots: %d rows\n", snapCount)
	}

	featCount, err := c.featTable.Count(ctx)
	if err != nil {
		return fmt.Errorf("count features: %w", err)
	}
	fmt.Printf("Features: %d rows\n", featCount)

	memberCount, err := c.membership.Count(ctx)
	if err != nil {
		return fmt.Errorf("count membership: %w", err)
	}
	memberLatest, memberOK, err := c.membership.LatestRebalanceDate(ctx)
	if err != nil {
		return fmt.Errorf("latest rebalance date: %w", err)
	}
	if memberOK {
		fmt.Printf("Membership: %d rows (latest rebalance %s)\n", memberCount, contracts.FormatDate(memberLatest))
	} else {
		fmt.Printf("Membership: %d rows\n", memberCount)
	}

	levelCount, err := c.levels.Count(ctx)
	if err != nil {
		return fmt.Errorf("count index levels: %w", err)
	}
	latest, err := c.levels.GetLatest(ctx)
	if err != nil {
		return fmt.Errorf("latest index level: %w", err)
	}
	if latest != nil {
		fmt.Printf("Index Levels: %d points (latest %s at %.2f)\n",
			levelCount,
			contracts.FormatDate(latest.Date),
			latest.IndexLevel)
	} else {
		fmt.Printf("Index Levels: %d points\n", levelCount)
	}

	fmt.Println()

	stats := c.db.Stats()
	fmt.Printf("Database: %d/%d connections in use, %d idle\n",
		stats.AcquiredConns,
		stats.MaxConns,
		stats.IdleConns)

	return nil
}
