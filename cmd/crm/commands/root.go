package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "CRM sales forecasting backend",
	Long: `CRM forecasting backend CLI

Orders with stock reservation, weekly sales dataset regeneration,
external forecast models and LLM interpretation of their metrics.

Usage:
  go run ./cmd/crm [command]

Examples:
  go run ./cmd/crm api
  go run ./cmd/crm forecast classic --mes 2024-03 --modelo rf
  go run ./cmd/crm forecast pro --file ventas.json
  go run ./cmd/crm dataset regenerate --output ventas.json
  go run ./cmd/crm test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
