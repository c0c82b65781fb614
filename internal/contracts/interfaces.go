package contracts

import "context"

// DatasetRegenerator rebuilds the sales dataset at path
// ⭐ SSOT: regeneration stage interface
type DatasetRegenerator interface {
	Regenerate(ctx context.Context, path string) error
}

// ModelExecutor runs the external forecasting computations and returns their
// raw payload. Parsing belongs to the caller.
// ⭐ SSOT: model execution stage interface
type ModelExecutor interface {
	ExecuteClassic(ctx context.Context, in ClassicInput) ([]byte, error)
	ExecutePro(ctx context.Context, in ProInput) ([]byte, error)
	ExecuteProRegression(ctx context.Context, in RegressionInput) ([]byte, error)
}

// Interpreter classifies model metrics. It may cover only part of the input.
// ⭐ SSOT: interpretation stage interface
type Interpreter interface {
	Interpret(ctx context.Context, metrics []ModelMetricsInput) ([]Interpretation, error)
}

// SalesSource lists the line items of completed orders
type SalesSource interface {
	CompletedSales(ctx context.Context) ([]SaleLine, error)
}

// ModelCatalog lists the distinct product labels a forecast can target
type ModelCatalog interface {
	ModelNames(ctx context.Context) ([]string, error)
}
