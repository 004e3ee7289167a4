package main

import (
	"os"

	"github.com/wonny/aegis-rotation/cmd/quant/commands"
)

// main is the entry point for the rotation CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
