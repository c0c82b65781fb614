package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// forecastCmd groups the forecast pipelines
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run a forecast pipeline once",
}

var forecastClassicCmd = &cobra.Command{
	Use:   "classic",
	Short: "Regenerate the dataset and run one classic model",
	Example: `  go run ./cmd/crm forecast classic --mes 2024-03 --modelo rf
  go run ./cmd/crm forecast classic --mes 2024-03 --modelo arima --cliente c1 --producto "IPHONE 13"`,
	RunE: runForecastClassic,
}

var forecastProCmd = &cobra.Command{
	Use:   "pro",
	Short: "Evaluate candidate models over a JSON sales export and label them",
	Example: `  go run ./cmd/crm forecast pro --file ventas.json`,
	RunE: runForecastPro,
}

var forecastRegressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "Train one regression model over a JSON table and predict the target",
	Example: `  go run ./cmd/crm forecast regression --file ventas.json --target Cantidad --features Precio,Semana --modelo gbr
  go run ./cmd/crm forecast regression --file ventas.json --target Cantidad --features Precio --modelo rf --producto "IPHONE 13"`,
	RunE: runForecastRegression,
}

var forecastLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the cached payload of the last classic run",
	RunE:  runForecastLast,
}

var (
	forecastReq   contracts.ForecastRequest
	forecastFile  string
	regressionReq contracts.RegressionRequest
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastClassicCmd, forecastProCmd, forecastRegressionCmd, forecastLastCmd)

	for _, c := range []*cobra.Command{forecastClassicCmd, forecastLastCmd} {
		c.Flags().StringVar(&forecastReq.Period, "mes", "", "target month (YYYY-MM)")
		c.Flags().StringVar(&forecastReq.ModelID, "modelo", "", "model id")
		c.Flags().StringVar(&forecastReq.ClientID, "cliente", "", "client filter")
		c.Flags().StringVar(&forecastReq.Product, "producto", "", "product filter")
	}
	forecastProCmd.Flags().StringVar(&forecastFile, "file", "", "JSON array of rows, or {\"data\": [...]}")
	_ = forecastProCmd.MarkFlagRequired("file")

	f := forecastRegressionCmd.Flags()
	f.StringVar(&forecastFile, "file", "", "JSON array of rows, or {\"data\": [...]}")
	f.StringVar(&regressionReq.Target, "target", "Cantidad", "column to predict")
	f.StringSliceVar(&regressionReq.Features, "features", nil, "predictor columns (comma separated)")
	f.StringVar(&regressionReq.ModelID, "modelo", "", "model id (gbr, rf, lr, xgb)")
	f.StringVar(&regressionReq.ClientID, "cliente", "", "client filter")
	f.StringVar(&regressionReq.Product, "producto", "", "product filter")
	_ = forecastRegressionCmd.MarkFlagRequired("file")
}

func runForecastClassic(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.RunClassic(cmd.Context(), forecastReq)
	if err != nil {
		printError(err)
		return err
	}
	return printJSON(result)
}

func runForecastPro(cmd *cobra.Command, args []string) error {
	rows, err := readRows(forecastFile)
	if err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.RunProGPT(cmd.Context(), rows)
	if err != nil {
		printError(err)
		return err
	}
	return printJSON(result)
}

func runForecastRegression(cmd *cobra.Command, args []string) error {
	rows, err := readRows(forecastFile)
	if err != nil {
		return err
	}
	regressionReq.Rows = rows
	if err := regressionReq.Validate(); err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.RunProRegression(cmd.Context(), regressionReq)
	if err != nil {
		printError(err)
		return err
	}
	return printJSON(result)
}

func runForecastLast(cmd *cobra.Command, args []string) error {
	if err := forecastReq.Validate(); err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	raw, ok := a.orchestrator.Cache().Lookup(cmd.Context(), forecastReq)
	if !ok {
		return fmt.Errorf("no cached forecast for %s %s", forecastReq.ModelID, forecastReq.Period)
	}
	return printJSON(raw)
}

// readRows accepts either a bare array or the HTTP body shape
func readRows(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []map[string]interface{}
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode rows %s: %w", path, err)
		}
		return rows, nil
	}

	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rows %s: %w", path, err)
	}
	return body.Data, nil
}
