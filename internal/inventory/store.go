// Package inventory guards the stock invariant: a product's stock is never
// decremented below zero and a rejected order leaves stock untouched.
package inventory

import (
	"context"
	"errors"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// ErrInsufficient is returned by StockStore.Decrement when stock < qty
var ErrInsufficient = errors.New("insufficient stock")

// StockStore is the persistence seam for stock mutations.
// Decrement must be atomic: check and subtract happen as one step.
type StockStore interface {
	Product(ctx context.Context, id string) (contracts.Product, error)
	Decrement(ctx context.Context, id string, qty int) (remaining int, err error)
	Increment(ctx context.Context, id string, qty int) error
}
