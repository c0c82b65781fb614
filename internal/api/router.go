package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/crmgeek/backend/internal/api/auth"
	"github.com/wonny/crmgeek/backend/internal/api/handlers"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Forecast *handlers.ForecastHandler
	Orders   *handlers.OrderHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: route registration happens in this function only
func NewRouter(h Handlers, verifier *auth.Verifier, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Everything under /api needs a seller token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(verifier, log))

	// Forecast endpoints
	api.HandleFunc("/forecast", h.Forecast.Classic).Methods("POST")
	api.HandleFunc("/forecast/pro", h.Forecast.Pro).Methods("POST")
	api.HandleFunc("/forecast/pro/regression", h.Forecast.Regression).Methods("POST")
	api.HandleFunc("/forecast/last", h.Forecast.Last).Methods("GET")
	api.HandleFunc("/models", h.Forecast.Models).Methods("GET")

	// Order endpoints
	api.HandleFunc("/orders", h.Orders.Create).Methods("POST")
	api.HandleFunc("/orders/{id}", h.Orders.Get).Methods("GET")
	api.HandleFunc("/orders/{id}", h.Orders.Amend).Methods("PUT")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "crm-forecast-api",
	})
}

// statusRecorder captures the response status for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "internal server error",
						"kind":  "INTERNAL",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
