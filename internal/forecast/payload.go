package forecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
)

const maxDetail = 2000

// truncate keeps diagnostics readable in logs and error bodies
func truncate(s string) string {
	if len(s) <= maxDetail {
		return s
	}
	return s[:maxDetail] + "...(truncated)"
}

// =============================================================================
// Script-reported failures
// =============================================================================

// scriptStatusWire is the failure envelope the model scripts print on stdout
type scriptStatusWire struct {
	Error     json.RawMessage `json:"error"`
	Traceback json.RawMessage `json:"traceback"`
}

// scriptFailure returns the execution error a script reported inside its
// payload, or nil. Any error value other than null, false, 0 or "" counts.
// Payloads that are not JSON objects are left to the shape decoders.
func scriptFailure(payload []byte) error {
	var status scriptStatusWire
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil
	}

	detail := wireText(status.Error)
	if detail == "" {
		return nil
	}
	if tb := wireText(status.Traceback); tb != "" {
		detail += "\n" + tb
	}
	return apperr.ModelExecution(truncate(detail), nil)
}

// wireText renders a JSON value as diagnostic text; falsy values are empty
func wireText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("false")):
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return strings.TrimSpace(s)
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
		return ""
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// =============================================================================
// Classic payload
// =============================================================================

// parseClassic decodes the classic payload, keeping the bytes for a
// verbatim response. An empty series is an output error.
func parseClassic(raw []byte) (*contracts.ClassicForecast, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, apperr.ModelOutput(truncate(string(raw)), fmt.Errorf("payload is not a JSON object"))
	}
	if err := scriptFailure(trimmed); err != nil {
		return nil, err
	}

	var cf contracts.ClassicForecast
	if err := json.Unmarshal(trimmed, &cf); err != nil {
		return nil, apperr.ModelOutput(truncate(string(raw)), err)
	}
	if len(cf.Series) == 0 {
		return nil, apperr.ModelOutput(truncate(string(trimmed)), errEmptySeries)
	}

	cf.Raw = append(json.RawMessage(nil), trimmed...)
	return &cf, nil
}

var errEmptySeries = errors.New("model returned an empty forecast series")

// =============================================================================
// PRO payload
// =============================================================================

type proModelWire struct {
	Modelo       string  `json:"modelo"`
	MAE          float64 `json:"MAE"`
	MAPE         float64 `json:"MAPE"`
	R2           float64 `json:"R2"`
	Predicciones []struct {
		Semana labelWire `json:"semana"`
		Valor  float64   `json:"valor"`
	} `json:"predicciones"`
}

type proHistoricalWire struct {
	Semana      labelWire `json:"Semana"`
	Cantidad    *float64  `json:"Cantidad"`
	Total       *float64  `json:"Total"`
	SemanaIndex int       `json:"SemanaIndex"`
}

type proBlendedWire struct {
	Semana     labelWire `json:"semana"`
	Prediccion float64   `json:"prediccion"`
}

type proPayloadWire struct {
	Modelos    []proModelWire      `json:"modelos"`
	Historico  []proHistoricalWire `json:"historico"`
	Prediccion []proBlendedWire    `json:"prediccion"`
}

// labelWire accepts a week label given as string or number
type labelWire string

func (l *labelWire) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = labelWire(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("week label must be a string or number, got %s", data)
	}
	*l = labelWire(data)
	return nil
}

type proOutput struct {
	Models     []contracts.ModelResult
	Historical []contracts.HistoricalPoint
	Blended    []contracts.BlendedPoint
}

// parsePro decodes the PRO payload. A script-reported error is an execution
// failure; anything unreadable is an output failure.
func parsePro(raw []byte) (*proOutput, error) {
	trimmed := bytes.TrimSpace(raw)
	if err := scriptFailure(trimmed); err != nil {
		return nil, err
	}

	var wire proPayloadWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, apperr.ModelOutput(truncate(string(raw)), err)
	}

	if len(wire.Modelos) == 0 {
		return nil, apperr.ModelOutput("model executor returned no models", nil)
	}

	out := &proOutput{
		Models:     make([]contracts.ModelResult, 0, len(wire.Modelos)),
		Historical: make([]contracts.HistoricalPoint, 0, len(wire.Historico)),
		Blended:    make([]contracts.BlendedPoint, 0, len(wire.Prediccion)),
	}

	for _, m := range wire.Modelos {
		preds := make([]contracts.ModelPoint, 0, len(m.Predicciones))
		for _, p := range m.Predicciones {
			preds = append(preds, contracts.ModelPoint{Week: string(p.Semana), Value: p.Valor})
		}
		out.Models = append(out.Models, contracts.ModelResult{
			ModelID:     m.Modelo,
			Metrics:     contracts.ModelMetrics{MAE: m.MAE, MAPE: m.MAPE, R2: m.R2},
			Predictions: preds,
		})
	}

	for _, h := range wire.Historico {
		total := 0.0
		switch {
		case h.Cantidad != nil:
			total = *h.Cantidad
		case h.Total != nil:
			total = *h.Total
		}
		out.Historical = append(out.Historical, contracts.HistoricalPoint{
			Week:      string(h.Semana),
			Total:     total,
			WeekIndex: h.SemanaIndex,
		})
	}

	for _, b := range wire.Prediccion {
		out.Blended = append(out.Blended, contracts.BlendedPoint{Week: string(b.Semana), Predicted: b.Prediccion})
	}

	return out, nil
}

// =============================================================================
// PRO regression payload
// =============================================================================

type regressionPayloadWire struct {
	Predicciones    []float64       `json:"predicciones"`
	ErrorPorcentaje *float64        `json:"error_porcentaje"`
	DebugInfo       json.RawMessage `json:"debug_info"`
}

// parseRegression decodes the regression payload. Predictions and the error
// percentage are both required.
func parseRegression(raw []byte) (*contracts.RegressionForecast, error) {
	trimmed := bytes.TrimSpace(raw)
	if err := scriptFailure(trimmed); err != nil {
		return nil, err
	}

	var wire regressionPayloadWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, apperr.ModelOutput(truncate(string(raw)), err)
	}
	if len(wire.Predicciones) == 0 {
		return nil, apperr.ModelOutput(truncate(string(trimmed)), errors.New("model returned no predictions"))
	}
	if wire.ErrorPorcentaje == nil {
		return nil, apperr.ModelOutput(truncate(string(trimmed)), errors.New("model returned no error percentage"))
	}

	out := &contracts.RegressionForecast{
		Predictions:  wire.Predicciones,
		ErrorPercent: *wire.ErrorPorcentaje,
	}
	if d := bytes.TrimSpace(wire.DebugInfo); len(d) > 0 && !bytes.Equal(d, []byte("null")) {
		out.Debug = append(json.RawMessage(nil), d...)
	}
	return out, nil
}
