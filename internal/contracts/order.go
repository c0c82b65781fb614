package contracts

import (
	"strings"
	"time"
)

// OrderStatus is the order lifecycle marker. Transitions are unconstrained.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDIENTE"
	OrderCompleted OrderStatus = "COMPLETADO"
	OrderCancelled OrderStatus = "CANCELADO"
)

// ParseOrderStatus accepts the stored value case-insensitively
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderPending:
		return OrderPending, true
	case OrderCompleted:
		return OrderCompleted, true
	case OrderCancelled:
		return OrderCancelled, true
	default:
		return "", false
	}
}

// LineItem is one product line of an order
type LineItem struct {
	ProductID string  `json:"id"`
	Quantity  int     `json:"cantidad"`
	Name      string  `json:"nombre,omitempty"`
	Price     float64 `json:"precio,omitempty"`
}

// Order is a seller's order for one client
type Order struct {
	ID        string      `json:"id"`
	Lines     []LineItem  `json:"pedido"`
	Total     float64     `json:"total"`
	ClientID  string      `json:"cliente"`
	SellerID  string      `json:"vendedor"`
	Status    OrderStatus `json:"estado"`
	CreatedAt time.Time   `json:"creado"`
}

// OrderInput is the create/amend request body
type OrderInput struct {
	Lines    []LineItem `json:"pedido"`
	ClientID string     `json:"cliente"`
	Total    *float64   `json:"total,omitempty"`
	Status   string     `json:"estado,omitempty"`
}

// Product is a sellable item; Stock never drops below zero
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"nombre"`
	Stock int     `json:"existencia"`
	Price float64 `json:"precio"`
}

// Client belongs to exactly one seller
type Client struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	SellerID string `json:"vendedor"`
}
