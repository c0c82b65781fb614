package orders

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/inventory"
)

// MemoryRepository keeps clients, products and orders in process.
// It backs STORAGE=memory and the tests; transactions are serialized.
type MemoryRepository struct {
	mu      sync.Mutex
	stock   *inventory.MemoryStore
	clients map[string]contracts.Client
	orders  map[string]contracts.Order
}

var (
	_ Repository             = (*MemoryRepository)(nil)
	_ contracts.SalesSource  = (*MemoryRepository)(nil)
	_ contracts.ModelCatalog = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stock:   inventory.NewMemoryStore(),
		clients: make(map[string]contracts.Client),
		orders:  make(map[string]contracts.Order),
	}
}

// Stock exposes the product store
func (r *MemoryRepository) Stock() *inventory.MemoryStore { return r.stock }

// PutProduct inserts or replaces a product
func (r *MemoryRepository) PutProduct(p contracts.Product) { r.stock.Put(p) }

// PutClient inserts or replaces a client
func (r *MemoryRepository) PutClient(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// PutOrder inserts or replaces an order without touching stock
func (r *MemoryRepository) PutOrder(o contracts.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = cloneOrder(o)
}

// InTx implements Repository. Stock moves are journaled and reverted when fn fails.
func (r *MemoryRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r, pending: make(map[string]contracts.Order)}
	if err := fn(tx); err != nil {
		tx.revert(ctx)
		return err
	}
	for id, o := range tx.pending {
		r.orders[id] = o
	}
	return nil
}

// CompletedSales implements contracts.SalesSource
func (r *MemoryRepository) CompletedSales(ctx context.Context) ([]contracts.SaleLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := make([]contracts.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if o.Status == contracts.OrderCompleted {
			completed = append(completed, o)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		if !completed[i].CreatedAt.Equal(completed[j].CreatedAt) {
			return completed[i].CreatedAt.Before(completed[j].CreatedAt)
		}
		return completed[i].ID < completed[j].ID
	})

	var lines []contracts.SaleLine
	for _, o := range completed {
		for _, l := range o.Lines {
			name := l.Name
			if name == "" {
				if p, err := r.stock.Product(ctx, l.ProductID); err == nil {
					name = p.Name
				}
			}
			lines = append(lines, contracts.SaleLine{Product: name, Quantity: l.Quantity, SoldAt: o.CreatedAt})
		}
	}
	return lines, nil
}

// ModelNames implements contracts.ModelCatalog
func (r *MemoryRepository) ModelNames(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, p := range r.stock.List() {
		name := strings.ToUpper(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type stockMove struct {
	id  string
	qty int // positive: decremented
}

type memTx struct {
	repo    *MemoryRepository
	pending map[string]contracts.Order
	journal []stockMove
}

func (t *memTx) Product(ctx context.Context, id string) (contracts.Product, error) {
	return t.repo.stock.Product(ctx, id)
}

func (t *memTx) Decrement(ctx context.Context, id string, qty int) (int, error) {
	remaining, err := t.repo.stock.Decrement(ctx, id, qty)
	if err == nil {
		t.journal = append(t.journal, stockMove{id: id, qty: qty})
	}
	return remaining, err
}

func (t *memTx) Increment(ctx context.Context, id string, qty int) error {
	err := t.repo.stock.Increment(ctx, id, qty)
	if err == nil {
		t.journal = append(t.journal, stockMove{id: id, qty: -qty})
	}
	return err
}

func (t *memTx) Client(ctx context.Context, id string) (contracts.Client, error) {
	c, ok := t.repo.clients[id]
	if !ok {
		return c, apperr.NotFound("client", id)
	}
	return c, nil
}

func (t *memTx) Order(ctx context.Context, id string) (contracts.Order, error) {
	if o, ok := t.pending[id]; ok {
		return cloneOrder(o), nil
	}
	o, ok := t.repo.orders[id]
	if !ok {
		return o, apperr.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (t *memTx) InsertOrder(ctx context.Context, o contracts.Order) error {
	t.pending[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o contracts.Order) error {
	if _, err := t.Order(ctx, o.ID); err != nil {
		return err
	}
	t.pending[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) revert(ctx context.Context) {
	for i := len(t.journal) - 1; i >= 0; i-- {
		m := t.journal[i]
		if m.qty > 0 {
			_ = t.repo.stock.Increment(ctx, m.id, m.qty)
		} else {
			_, _ = t.repo.stock.Decrement(ctx, m.id, -m.qty)
		}
	}
}

func cloneOrder(o contracts.Order) contracts.Order {
	o.Lines = append([]contracts.LineItem(nil), o.Lines...)
	return o
}
