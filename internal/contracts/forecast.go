package contracts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/wonny/crmgeek/backend/internal/apperr"
)

// PeriodLayout is the ForecastRequest.Period format (YYYY-MM)
const PeriodLayout = "2006-01"

// ForecastRequest is the classic forecast input
type ForecastRequest struct {
	Period   string `json:"mes"`
	ModelID  string `json:"modelo"`
	ClientID string `json:"cliente,omitempty"`
	Product  string `json:"producto,omitempty"`
}

// Validate checks the required fields
func (r ForecastRequest) Validate() error {
	if strings.TrimSpace(r.Period) == "" || strings.TrimSpace(r.ModelID) == "" {
		return apperr.NoData("period and model are required")
	}
	if _, err := time.Parse(PeriodLayout, r.Period); err != nil {
		return apperr.Validation("period must be formatted as YYYY-MM").WithDetail(r.Period)
	}
	return nil
}

// ModelMetrics are the evaluation scores of one candidate model
type ModelMetrics struct {
	MAE  float64 `json:"MAE"`
	MAPE float64 `json:"MAPE"`
	R2   float64 `json:"R2"`
}

// ModelPoint is one predicted value of a candidate model
type ModelPoint struct {
	Week  string  `json:"semana"`
	Value float64 `json:"valor"`
}

// ModelResult is what the executor reports for one candidate model
type ModelResult struct {
	ModelID     string
	Metrics     ModelMetrics
	Predictions []ModelPoint
}

// Precision is the qualitative label attached to a model
type Precision string

const (
	PrecisionHigh        Precision = "Alta"
	PrecisionMedium      Precision = "Media"
	PrecisionLow         Precision = "Baja"
	PrecisionNotAssessed Precision = "No evaluado"
)

// DefaultRecommendation is used when a model received no interpretation
const DefaultRecommendation = "Sin recomendación"

// ParsePrecision accepts Alta/Media/Baja (case and surrounding blanks ignored).
// Anything else is non-conforming.
func ParsePrecision(label string) (Precision, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "alta":
		return PrecisionHigh, true
	case "media":
		return PrecisionMedium, true
	case "baja":
		return PrecisionLow, true
	default:
		return PrecisionNotAssessed, false
	}
}

// NormalizeModelID is the merge key between executor and interpreter output
func NormalizeModelID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ModelMetricsInput is what gets submitted to the interpreter
type ModelMetricsInput struct {
	ModelID string  `json:"modelo"`
	MAE     float64 `json:"MAE"`
	MAPE    float64 `json:"MAPE"`
	R2      float64 `json:"R2"`
}

// Interpretation is the interpreter's verdict for one model; Precision is raw
// text until merged.
type Interpretation struct {
	ModelID        string `json:"modelo"`
	Precision      string `json:"precision"`
	Recommendation string `json:"recomendacion"`
}

// ClassicPoint is one week of the classic forecast series
type ClassicPoint struct {
	Week      string   `json:"semana"`
	Predicted float64  `json:"prediccion"`
	Actual    *float64 `json:"real"`
}

// ClassicForecast is the classic forecast response.
// Raw keeps the executor payload so it can be returned verbatim.
type ClassicForecast struct {
	TotalSales   float64        `json:"totalVentas"`
	Average      float64        `json:"promedio"`
	SquaredError float64        `json:"errorCuadratico"`
	Series       []ClassicPoint `json:"pronostico"`

	Raw json.RawMessage `json:"-"`
}

// MarshalJSON returns Raw when present
func (c ClassicForecast) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type plain ClassicForecast
	return json.Marshal(plain(c))
}

// EvaluatedModel is a ModelResult merged with its interpretation
type EvaluatedModel struct {
	ModelID        string       `json:"modelo"`
	MAE            float64      `json:"MAE"`
	MAPE           float64      `json:"MAPE"`
	R2             float64      `json:"R2"`
	Precision      Precision    `json:"precision"`
	Recommendation string       `json:"recomendacion"`
	Predictions    []ModelPoint `json:"predicciones"`
}

// HistoricalPoint is one week of observed sales
type HistoricalPoint struct {
	Week      string  `json:"Semana"`
	Total     float64 `json:"Total"`
	WeekIndex int     `json:"SemanaIndex"`
}

// BlendedPoint is one week of the averaged prediction
type BlendedPoint struct {
	Week      string  `json:"semana"`
	Predicted float64 `json:"prediccion"`
}

// ProForecast is the PRO+GPT response
type ProForecast struct {
	Models     []EvaluatedModel  `json:"modelos"`
	Historical []HistoricalPoint `json:"historico"`
	Blended    []BlendedPoint    `json:"prediccion"`
}

// ClassicInput is handed to the executor for a classic run
type ClassicInput struct {
	DatasetPath string
	Period      string
	ModelID     string
	ClientID    string
	Product     string
}

// ProInput is handed to the executor for a PRO run
type ProInput struct {
	CSVPath string
}

// RegressionRequest is the PRO regression input: an uploaded table, the
// column to predict, the predictor columns and one model. The JSON shape is
// also the file handed to the regression script.
type RegressionRequest struct {
	Rows     []map[string]interface{} `json:"data"`
	Target   string                   `json:"target"`
	Features []string                 `json:"features"`
	ModelID  string                   `json:"modelo"`
	ClientID string                   `json:"cliente,omitempty"`
	Product  string                   `json:"producto,omitempty"`
}

// Validate checks the required fields. Column existence and row counts are
// checked by the script against the actual data.
func (r RegressionRequest) Validate() error {
	if len(r.Rows) == 0 {
		return apperr.NoData("at least one row is required")
	}
	if strings.TrimSpace(r.Target) == "" || strings.TrimSpace(r.ModelID) == "" {
		return apperr.NoData("target and model are required")
	}
	if len(r.Features) == 0 {
		return apperr.NoData("at least one feature column is required")
	}
	for _, f := range r.Features {
		if strings.TrimSpace(f) == "" {
			return apperr.Validation("feature column names must not be blank")
		}
		if strings.TrimSpace(f) == strings.TrimSpace(r.Target) {
			return apperr.Validation("target column cannot also be a feature").WithDetail(f)
		}
	}
	return nil
}

// RegressionForecast is the PRO regression response
type RegressionForecast struct {
	Predictions  []float64       `json:"predicciones"`
	ErrorPercent float64         `json:"error_porcentaje"`
	Debug        json.RawMessage `json:"debug_info,omitempty"`
}

// RegressionInput is handed to the executor for a PRO regression run
type RegressionInput struct {
	InputPath string
}
