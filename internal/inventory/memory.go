package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// MemoryStore is a mutex-guarded StockStore for tests and STORAGE=memory
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]contracts.Product
}

var _ StockStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with products
func NewMemoryStore(products ...contracts.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]contracts.Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Put inserts or replaces a product
func (s *MemoryStore) Put(p contracts.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Product implements StockStore
func (s *MemoryStore) Product(ctx context.Context, id string) (contracts.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return contracts.Product{}, apperr.NotFound("product", id)
	}
	return p, nil
}

// Decrement implements StockStore
func (s *MemoryStore) Decrement(ctx context.Context, id string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, apperr.NotFound("product", id)
	}
	if p.Stock < qty {
		return p.Stock, ErrInsufficient
	}
	p.Stock -= qty
	s.products[id] = p
	return p.Stock, nil
}

// Increment implements StockStore
func (s *MemoryStore) Increment(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return apperr.NotFound("product", id)
	}
	p.Stock += qty
	s.products[id] = p
	return nil
}

// Stock returns the current stock of id (-1 when unknown)
func (s *MemoryStore) Stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return -1
	}
	return p.Stock
}

// List returns all products sorted by id
func (s *MemoryStore) List() []contracts.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
