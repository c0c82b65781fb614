// Package orders creates, amends and reads sellers' orders. Stock moves and
// the order row are persisted in one transaction.
package orders

import (
	"context"

	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/inventory"
)

// Tx is the unit of work handed to Repository.InTx.
// Stock mutations made through it commit or roll back with the order.
type Tx interface {
	inventory.StockStore

	Client(ctx context.Context, id string) (contracts.Client, error)
	// Order loads an order with its lines; Postgres locks the row until commit
	Order(ctx context.Context, id string) (contracts.Order, error)
	InsertOrder(ctx context.Context, o contracts.Order) error
	UpdateOrder(ctx context.Context, o contracts.Order) error
}

// Repository opens transactions over the order store
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
