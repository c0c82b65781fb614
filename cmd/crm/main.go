package main

import (
	"os"

	"github.com/wonny/crmgeek/backend/cmd/crm/commands"
)

// main is the entry point for the CRM CLI
// ⭐ Unified CLI entry point: go run ./cmd/crm [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
