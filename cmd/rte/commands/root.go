package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	paramsFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rte",
	Short: "RTE-100 - Roblox top-earning index pipeline",
	Long: `RTE-100 Index Pipeline

Batch pipeline over scraped top-earning run files: daily revenue proxy
estimation, rolling features, the weekly hysteresis rebalance, and the
compounded index level series.

Usage:
  go run ./cmd/rte [command]

Examples:
  go run ./cmd/rte run
  go run ./cmd/rte run --rebalance-date 2025-07-14
  go run ./cmd/rte scheduler start
  go run ./cmd/rte status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "parameter YAML (default: INDEX_PARAMS_FILE or built-ins)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
