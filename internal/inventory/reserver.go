package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Reserved describes the stock movement applied for one product
type Reserved struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int // quantity the order now holds
	Delta     int // stock taken (positive) or returned (negative)
	Remaining int
}

// Reserver validates order lines against live stock and applies the
// decrements all-or-nothing.
// ⭐ SSOT: the only code path that mutates Product.stock
type Reserver struct {
	logger *logger.Logger
}

// NewReserver creates a reserver
func NewReserver(log *logger.Logger) *Reserver {
	return &Reserver{logger: log.Component("inventory")}
}

// Reserve takes stock for every line of a new order
func (r *Reserver) Reserve(ctx context.Context, store StockStore, lines []contracts.LineItem) ([]Reserved, error) {
	wanted, err := aggregate(lines)
	if err != nil {
		return nil, err
	}
	return r.apply(ctx, store, wanted, nil)
}

// Amend applies an amendment to an order whose current lines are previous.
// Only products present in next are considered; the order keeps credit for
// what it already holds, so only the difference moves stock.
func (r *Reserver) Amend(ctx context.Context, store StockStore, previous, next []contracts.LineItem) ([]Reserved, error) {
	wanted, err := aggregate(next)
	if err != nil {
		return nil, err
	}

	held := make(map[string]int, len(previous))
	for _, l := range previous {
		held[strings.TrimSpace(l.ProductID)] += l.Quantity
	}
	return r.apply(ctx, store, wanted, held)
}

// aggregate sums duplicate product lines and validates quantities
func aggregate(lines []contracts.LineItem) (map[string]int, error) {
	if len(lines) == 0 {
		return nil, apperr.NoData("order has no line items")
	}
	out := make(map[string]int, len(lines))
	for _, l := range lines {
		id := strings.TrimSpace(l.ProductID)
		if id == "" {
			return nil, apperr.Validation("line item without product id")
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("quantity for product %s must be positive", id))
		}
		out[id] += l.Quantity
	}
	return out, nil
}

type movement struct {
	product contracts.Product
	want    int
	delta   int
}

type applied struct {
	id    string
	delta int
}

func (r *Reserver) apply(ctx context.Context, store StockStore, wanted, held map[string]int) ([]Reserved, error) {
	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids) // fixed lock order across concurrent orders

	// Phase 1: validate every line before touching stock
	moves := make([]movement, 0, len(ids))
	for _, id := range ids {
		p, err := store.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		delta := wanted[id] - held[id]
		if delta > p.Stock {
			return nil, apperr.InsufficientStock(p.Name, delta, p.Stock)
		}
		moves = append(moves, movement{product: p, want: wanted[id], delta: delta})
	}

	// Phase 2: apply; undo on the first failure
	done := make([]applied, 0, len(moves))
	out := make([]Reserved, 0, len(moves))
	for _, m := range moves {
		id := m.product.ID
		remaining := m.product.Stock

		var err error
		switch {
		case m.delta > 0:
			remaining, err = store.Decrement(ctx, id, m.delta)
		case m.delta < 0:
			err = store.Increment(ctx, id, -m.delta)
			remaining = m.product.Stock - m.delta
		}

		if err != nil {
			r.rollback(ctx, store, done)
			if errors.Is(err, ErrInsufficient) {
				return nil, apperr.InsufficientStock(m.product.Name, m.delta, remaining)
			}
			if _, typed := apperr.As(err); typed {
				return nil, err
			}
			return nil, apperr.Internal("update stock", err)
		}

		if m.delta != 0 {
			done = append(done, applied{id: id, delta: m.delta})
		}
		out = append(out, Reserved{
			ProductID: id,
			Name:      m.product.Name,
			Price:     m.product.Price,
			Quantity:  m.want,
			Delta:     m.delta,
			Remaining: remaining,
		})
	}

	r.logger.WithField("products", len(out)).Debug("stock reserved")
	return out, nil
}

// rollback reverses applied movements, newest first
func (r *Reserver) rollback(ctx context.Context, store StockStore, done []applied) {
	for i := len(done) - 1; i >= 0; i-- {
		a := done[i]
		var err error
		if a.delta > 0 {
			err = store.Increment(ctx, a.id, a.delta)
		} else {
			_, err = store.Decrement(ctx, a.id, -a.delta)
		}
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"product": a.id,
				"delta":   a.delta,
			}).Error("stock rollback failed")
		}
	}
}
