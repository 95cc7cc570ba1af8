package main

import (
	"os"

	"github.com/wonny/equisim/cmd/equisim/commands"
)

// main is the entry point for the equisim CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/equisim [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
