package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// ForecastRunner is the forecast pipeline as seen by HTTP
type ForecastRunner interface {
	RunClassic(ctx context.Context, req contracts.ForecastRequest) (*contracts.ClassicForecast, error)
	RunProGPT(ctx context.Context, rows []map[string]interface{}) (*contracts.ProForecast, error)
	RunProRegression(ctx context.Context, req contracts.RegressionRequest) (*contracts.RegressionForecast, error)
}

// ForecastCache serves the last classic payload per request shape
type ForecastCache interface {
	Lookup(ctx context.Context, req contracts.ForecastRequest) (json.RawMessage, bool)
}

// ForecastHandler handles forecast API endpoints
// ⭐ SSOT: forecast API handlers live on this struct only
type ForecastHandler struct {
	runner  ForecastRunner
	cache   ForecastCache
	catalog contracts.ModelCatalog
	logger  *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(runner ForecastRunner, cache ForecastCache, catalog contracts.ModelCatalog, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		runner:  runner,
		cache:   cache,
		catalog: catalog,
		logger:  log.Component("forecast-api"),
	}
}

// ProRequest is the PRO upload body
type ProRequest struct {
	Data []map[string]interface{} `json:"data"`
}

// Classic runs one model over the regenerated dataset
// POST /api/forecast
func (h *ForecastHandler) Classic(w http.ResponseWriter, r *http.Request) {
	var req contracts.ForecastRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.runner.RunClassic(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Pro evaluates candidate models over an uploaded sales table
// POST /api/forecast/pro
func (h *ForecastHandler) Pro(w http.ResponseWriter, r *http.Request) {
	var req ProRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.runner.RunProGPT(r.Context(), req.Data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Regression trains one regression model over an uploaded table
// POST /api/forecast/pro/regression
func (h *ForecastHandler) Regression(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegressionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.runner.RunProRegression(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Last returns the cached payload of the last successful classic run
// GET /api/forecast/last?mes=&modelo=&cliente=&producto=
func (h *ForecastHandler) Last(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := contracts.ForecastRequest{
		Period:   q.Get("mes"),
		ModelID:  q.Get("modelo"),
		ClientID: q.Get("cliente"),
		Product:  q.Get("producto"),
	}
	if err := req.Validate(); err != nil {
		respondError(w, h.logger, err)
		return
	}

	raw, ok := h.cache.Lookup(r.Context(), req)
	if !ok {
		respondError(w, h.logger, apperr.New(apperr.KindNotFound, "no cached forecast for "+req.ModelID+" "+req.Period))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// Models lists the product labels a forecast can target
// GET /api/models
func (h *ForecastHandler) Models(w http.ResponseWriter, r *http.Request) {
	names, err := h.catalog.ModelNames(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, names)
}
