package commands

import (
	"fmt"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/pipeline"
)

func printRunResult(result *pipeline.RunResult) {
	fmt.Println()
	fmt.Println("Pipeline Run Completed")
	fmt.Println()

	// Summary
	fmt.Printf("Duration: %.2fs\n", result.Duration.Seconds())
	fmt.Printf("Success: %v\n", result.Success)
	fmt.Println()

	// Stages
	fmt.Println("Completed Stages:")
	for _, stage := range result.CompletedStages {
		fmt.Printf("  - %s\n", stage)
	}
	fmt.Println()

	// Results
	fmt.Printf("Snapshots: %d rows\n", result.SnapshotRows)
	fmt.Printf("Features: %d rows\n", result.FeatureRows)

	if result.Rebalance != nil {
		printRebalanceOutcome(result.Rebalance)
	}
}

func printRebalanceOutcome(outcome *pipeline.RebalanceOutcome) {
	fmt.Println()
	fmt.Printf("Rebalance: %s\n", contracts.FormatDate(outcome.RebalanceDate))
	fmt.Printf("Constituents: %d (of %d ranked)\n", len(outcome.Members), len(outcome.Ranked))

	if len(outcome.Members) > 0 {
		top := outcome.Members[0]
		fmt.Printf("Top constituent: universe %d at %.2f%% weight\n", top.UniverseID, top.Weight*100)
	}
	if outcome.ReportPath != "" {
		fmt.Printf("Report: %s\n", outcome.ReportPath)
	}
	for _, path := range outcome.ExportPaths {
		fmt.Printf("Exported: %s\n", path)
	}

	if outcome.Index != nil {
		printIndexOutcome(outcome.Index)
	}
}

func printIndexOutcome(outcome *pipeline.IndexOutcome) {
	fmt.Println()
	fmt.Printf("Index Levels: %d points\n", len(outcome.Points))

	if stats := outcome.Stats; stats != nil {
		fmt.Printf("Period: %s ~ %s (%d days)\n",
			contracts.FormatDate(stats.StartDate),
			contracts.FormatDate(stats.EndDate),
			stats.Days)
		fmt.Printf("Final Level: %.2f (total return %.2f%%)\n", stats.FinalLevel, stats.TotalReturn*100)
		fmt.Printf("Annual Return: %.2f%%, Volatility: %.2f%%, Sharpe: %.2f\n",
			stats.AnnualReturn*100,
			stats.Volatility*100,
			stats.Sharpe)
		fmt.Printf("Max Drawdown: %.2f%%\n", stats.MaxDrawdown*100)
	}
	for _, path := range outcome.ExportPaths {
		fmt.Printf("Exported: %s\n", path)
	}
}
