package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/inventory"
	"github.com/wonny/crmgeek/backend/pkg/database"
)

// PostgresRepository stores orders in the crm schema
type PostgresRepository struct {
	db database.TxBeginner
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository over a pool (or an outer tx)
func NewPostgresRepository(db database.TxBeginner) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InTx implements Repository
func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.RunInTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgTx{PostgresStore: inventory.NewPostgresStore(tx), tx: tx})
	})
}

type pgTx struct {
	*inventory.PostgresStore
	tx pgx.Tx
}

func (t *pgTx) Client(ctx context.Context, id string) (contracts.Client, error) {
	var c contracts.Client
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, seller_id
		FROM crm.clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.SellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, apperr.NotFound("client", id)
	}
	if err != nil {
		return c, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}

func (t *pgTx) Order(ctx context.Context, id string) (contracts.Order, error) {
	var (
		o      contracts.Order
		status string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, client_id, seller_id, status, total, created_at
		FROM crm.orders
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&o.ID, &o.ClientID, &o.SellerID, &status, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, apperr.NotFound("order", id)
	}
	if err != nil {
		return o, fmt.Errorf("get order %s: %w", id, err)
	}
	o.Status = contracts.OrderStatus(status)

	rows, err := t.tx.Query(ctx, `
		SELECT product_id, quantity, name, price
		FROM crm.order_lines
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return o, fmt.Errorf("get order lines %s: %w", id, err)
	}
	defer rows.Close()

	o.Lines = make([]contracts.LineItem, 0)
	for rows.Next() {
		var l contracts.LineItem
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Name, &l.Price); err != nil {
			return o, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (t *pgTx) InsertOrder(ctx context.Context, o contracts.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO crm.orders (id, client_id, seller_id, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.ClientID, o.SellerID, string(o.Status), o.Total, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return t.insertLines(ctx, o)
}

func (t *pgTx) UpdateOrder(ctx context.Context, o contracts.Order) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE crm.orders
		SET status = $2, total = $3
		WHERE id = $1
	`, o.ID, string(o.Status), o.Total)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order", o.ID)
	}

	if _, err := t.tx.Exec(ctx, `DELETE FROM crm.order_lines WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("clear order lines: %w", err)
	}
	return t.insertLines(ctx, o)
}

// insertLines writes the lines in one round trip
func (t *pgTx) insertLines(ctx context.Context, o contracts.Order) error {
	if len(o.Lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO crm.order_lines (order_id, position, product_id, quantity, name, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, l := range o.Lines {
		batch.Queue(query, o.ID, i, l.ProductID, l.Quantity, l.Name, l.Price)
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()

	for range o.Lines {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}
