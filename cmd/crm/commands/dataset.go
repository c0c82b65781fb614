package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Weekly sales dataset tools",
}

var datasetRegenerateCmd = &cobra.Command{
	Use:     "regenerate",
	Short:   "Rebuild the weekly sales dataset from completed orders",
	Example: `  go run ./cmd/crm dataset regenerate --output ventas.json`,
	RunE:    runDatasetRegenerate,
}

var datasetModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the product labels a forecast can target",
	RunE:  runDatasetModels,
}

var datasetOutput string

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetRegenerateCmd, datasetModelsCmd)

	datasetRegenerateCmd.Flags().StringVarP(&datasetOutput, "output", "o", "ventas.json", "output path")
}

func runDatasetRegenerate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	if err := a.facts.Regenerate(cmd.Context(), datasetOutput); err != nil {
		printError(err)
		return err
	}

	fmt.Printf("✅ Dataset written to %s in %.2fs\n", datasetOutput, time.Since(start).Seconds())
	return nil
}

func runDatasetModels(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.catalog.ModelNames(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(names)
}
