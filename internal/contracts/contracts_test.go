package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/internal/apperr"
)

func TestForecastRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ForecastRequest
		wantErr bool
		msg     string
	}{
		{"valid", ForecastRequest{Period: "2024-03", ModelID: "rf"}, false, ""},
		{"valid with filters", ForecastRequest{Period: "2024-03", ModelID: "lr", ClientID: "c1", Product: "X"}, false, ""},
		{"missing period", ForecastRequest{ModelID: "rf"}, true, "no data provided: period and model are required"},
		{"missing model", ForecastRequest{Period: "2024-03"}, true, "no data provided: period and model are required"},
		{"blank model", ForecastRequest{Period: "2024-03", ModelID: "  "}, true, "no data provided: period and model are required"},
		{"bad period", ForecastRequest{Period: "03/2024", ModelID: "rf"}, true, "period must be formatted as YYYY-MM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			e, _ := apperr.As(err)
			assert.Equal(t, tt.msg, e.Message)
		})
	}
}

func TestRegressionRequestValidate(t *testing.T) {
	rows := []map[string]interface{}{{"Cantidad": 3, "Precio": 10}}

	tests := []struct {
		name string
		req  RegressionRequest
		msg  string
	}{
		{"valid", RegressionRequest{Rows: rows, Target: "Cantidad", Features: []string{"Precio"}, ModelID: "rf"}, ""},
		{"no rows", RegressionRequest{Target: "Cantidad", Features: []string{"Precio"}, ModelID: "rf"}, "no data provided: at least one row is required"},
		{"no target", RegressionRequest{Rows: rows, Features: []string{"Precio"}, ModelID: "rf"}, "no data provided: target and model are required"},
		{"no model", RegressionRequest{Rows: rows, Target: "Cantidad", Features: []string{"Precio"}}, "no data provided: target and model are required"},
		{"no features", RegressionRequest{Rows: rows, Target: "Cantidad", ModelID: "rf"}, "no data provided: at least one feature column is required"},
		{"blank feature", RegressionRequest{Rows: rows, Target: "Cantidad", Features: []string{" "}, ModelID: "rf"}, "feature column names must not be blank"},
		{"target as feature", RegressionRequest{Rows: rows, Target: "Cantidad", Features: []string{"Precio", " Cantidad"}, ModelID: "rf"}, "target column cannot also be a feature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tt.msg, e.Message)
		})
	}
}

func TestRegressionRequestJSON(t *testing.T) {
	req := RegressionRequest{
		Rows:     []map[string]interface{}{{"Cantidad": 3.0}},
		Target:   "Cantidad",
		Features: []string{"Precio"},
		ModelID:  "gbr",
		Product:  "IPHONE 13",
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"Cantidad":3}],"target":"Cantidad","features":["Precio"],"modelo":"gbr","producto":"IPHONE 13"}`, string(data))
}

func TestSalesFactJSON(t *testing.T) {
	fact := SalesFact{Product: "IPHONE 13", Quantity: 4, WeekStart: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}

	data, err := json.Marshal(fact)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Modelo":"IPHONE 13","Cantidad vendida":4,"Semana":"2024-03-04"}`, string(data))

	var back SalesFact
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fact, back)

	assert.Error(t, json.Unmarshal([]byte(`{"Modelo":"X","Cantidad vendida":1,"Semana":"nope"}`), &back))
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday", time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), "2024-03-04"},
		{"wednesday", time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC), "2024-03-04"},
		{"sunday belongs to previous monday", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), "2024-03-04"},
		{"crosses year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2024-12-30"},
		{"non-utc input", time.Date(2024, 3, 11, 1, 0, 0, 0, time.FixedZone("X", 3*3600)), "2024-03-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in).Format(DateLayout))
		})
	}
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in   string
		want Precision
		ok   bool
	}{
		{"Alta", PrecisionHigh, true},
		{" media ", PrecisionMedium, true},
		{"BAJA", PrecisionLow, true},
		{"Excelente", PrecisionNotAssessed, false},
		{"", PrecisionNotAssessed, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrecision(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestClassicForecastMarshalVerbatim(t *testing.T) {
	raw := []byte(`{"totalVentas":120,"promedio":10,"errorCuadratico":2.5,"pronostico":[{"semana":"2024-W09","prediccion":9.8,"real":10}],"extra":"kept"}`)
	cf := ClassicForecast{TotalSales: 120, Raw: raw}

	out, err := json.Marshal(cf)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))

	out, err = json.Marshal(ClassicForecast{TotalSales: 1, Series: []ClassicPoint{{Week: "w", Predicted: 2}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalVentas":1,"promedio":0,"errorCuadratico":0,"pronostico":[{"semana":"w","prediccion":2,"real":null}]}`, string(out))
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("completado")
	assert.True(t, ok)
	assert.Equal(t, OrderCompleted, s)

	_, ok = ParseOrderStatus("SHIPPED")
	assert.False(t, ok)
}
