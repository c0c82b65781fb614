package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// PostgresSource reads completed order lines from PostgreSQL
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a new source
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// CompletedSales implements contracts.SalesSource.
// The line's stored name wins over the current product name, as sold.
func (s *PostgresSource) CompletedSales(ctx context.Context) ([]contracts.SaleLine, error) {
	query := `
		SELECT COALESCE(NULLIF(l.name, ''), p.name, ''), l.quantity, o.created_at
		FROM crm.order_lines l
		JOIN crm.orders o ON o.id = l.order_id
		LEFT JOIN crm.products p ON p.id = l.product_id
		WHERE o.status = $1
		ORDER BY o.created_at, o.id, l.position
	`

	rows, err := s.pool.Query(ctx, query, string(contracts.OrderCompleted))
	if err != nil {
		return nil, fmt.Errorf("query completed sales: %w", err)
	}
	defer rows.Close()

	var lines []contracts.SaleLine
	for rows.Next() {
		var l contracts.SaleLine
		if err := rows.Scan(&l.Product, &l.Quantity, &l.SoldAt); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// ModelNames implements contracts.ModelCatalog
func (s *PostgresSource) ModelNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT UPPER(TRIM(name)) AS model
		FROM crm.products
		WHERE TRIM(name) <> ''
		ORDER BY model
	`)
	if err != nil {
		return nil, fmt.Errorf("query model names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan model name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
