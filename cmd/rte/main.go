package main

import (
	"os"

	"github.com/nickpio/top-earning-parser/cmd/rte/commands"
)

// main is the entry point for the rte CLI: go run ./cmd/rte [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
