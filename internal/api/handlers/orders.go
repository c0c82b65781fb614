package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/crmgeek/backend/internal/api/auth"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// OrderService is the order use-case layer as seen by HTTP
type OrderService interface {
	Create(ctx context.Context, sellerID string, in contracts.OrderInput) (*contracts.Order, error)
	Amend(ctx context.Context, sellerID, orderID string, in contracts.OrderInput) (*contracts.Order, error)
	Get(ctx context.Context, sellerID, orderID string) (*contracts.Order, error)
}

// OrderHandler handles order API endpoints
type OrderHandler struct {
	service OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: log.Component("orders-api")}
}

// Create POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in contracts.OrderInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, h.logger, err)
		return
	}

	order, err := h.service.Create(r.Context(), auth.SellerID(r.Context()), in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// Amend PUT /api/orders/{id}
func (h *OrderHandler) Amend(w http.ResponseWriter, r *http.Request) {
	var in contracts.OrderInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, h.logger, err)
		return
	}

	order, err := h.service.Amend(r.Context(), auth.SellerID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Get GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), auth.SellerID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
