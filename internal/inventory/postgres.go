package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// PostgresStore is a StockStore bound to one transaction. The conditional
// UPDATE holds the row lock, so two orders cannot both pass the check.
type PostgresStore struct {
	tx pgx.Tx
}

var _ StockStore = (*PostgresStore)(nil)

// NewPostgresStore binds the store to tx
func NewPostgresStore(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

// Product implements StockStore
func (s *PostgresStore) Product(ctx context.Context, id string) (contracts.Product, error) {
	var p contracts.Product
	err := s.tx.QueryRow(ctx, `
		SELECT id, name, stock, price
		FROM crm.products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Stock, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.NotFound("product", id)
	}
	if err != nil {
		return p, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Decrement implements StockStore
func (s *PostgresStore) Decrement(ctx context.Context, id string, qty int) (int, error) {
	var remaining int
	err := s.tx.QueryRow(ctx, `
		UPDATE crm.products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`, id, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficient
	}
	if err != nil {
		return 0, fmt.Errorf("decrement stock %s: %w", id, err)
	}
	return remaining, nil
}

// Increment implements StockStore
func (s *PostgresStore) Increment(ctx context.Context, id string, qty int) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE crm.products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return fmt.Errorf("increment stock %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}
