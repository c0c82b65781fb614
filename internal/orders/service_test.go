package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/inventory"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

func setup(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	repo.PutProduct(contracts.Product{ID: "p1", Name: "iPhone 13", Stock: 3, Price: 1000})
	repo.PutProduct(contracts.Product{ID: "p2", Name: "Galaxy S22", Stock: 10, Price: 800})
	repo.PutClient(contracts.Client{ID: "c1", Name: "Acme", SellerID: "s1"})
	repo.PutClient(contracts.Client{ID: "c2", Name: "Globex", SellerID: "s2"})

	log := logger.Nop()
	svc := NewService(repo, inventory.NewReserver(log), log)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func items(pairs ...interface{}) []contracts.LineItem {
	var out []contracts.LineItem
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, contracts.LineItem{ProductID: pairs[i].(string), Quantity: pairs[i+1].(int)})
	}
	return out
}

func total(v float64) *float64 { return &v }

func TestCreate(t *testing.T) {
	svc, repo := setup(t)

	o, err := svc.Create(context.Background(), "s1", contracts.OrderInput{
		ClientID: "c1",
		Lines:    items("p2", 2, "p1", 1),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, contracts.OrderPending, o.Status)
	assert.Equal(t, "s1", o.SellerID)
	assert.Equal(t, 2600.0, o.Total)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "p2", o.Lines[0].ProductID, "request order is kept")
	assert.Equal(t, "Galaxy S22", o.Lines[0].Name)

	assert.Equal(t, 2, repo.Stock().Stock("p1"))
	assert.Equal(t, 8, repo.Stock().Stock("p2"))

	got, err := svc.Get(context.Background(), "s1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Lines, got.Lines)
}

func TestCreate_GivenTotalAndStatus(t *testing.T) {
	svc, _ := setup(t)

	o, err := svc.Create(context.Background(), "s1", contracts.OrderInput{
		ClientID: "c1",
		Lines:    items("p1", 1),
		Total:    total(900),
		Status:   "completado",
	})
	require.NoError(t, err)
	assert.Equal(t, 900.0, o.Total)
	assert.Equal(t, contracts.OrderCompleted, o.Status)
}

func TestCreate_InsufficientStock(t *testing.T) {
	svc, repo := setup(t)

	_, err := svc.Create(context.Background(), "s1", contracts.OrderInput{
		ClientID: "c1",
		Lines:    items("p2", 1, "p1", 5),
	})
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInsufficientStock, e.Kind)
	assert.Equal(t, "insufficient stock for iPhone 13", e.Message)

	assert.Equal(t, 3, repo.Stock().Stock("p1"))
	assert.Equal(t, 10, repo.Stock().Stock("p2"))
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		seller string
		in     contracts.OrderInput
		kind   apperr.Kind
	}{
		{"no seller", "", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1)}, apperr.KindAuthorization},
		{"no client", "s1", contracts.OrderInput{Lines: items("p1", 1)}, apperr.KindValidation},
		{"unknown client", "s1", contracts.OrderInput{ClientID: "zz", Lines: items("p1", 1)}, apperr.KindNotFound},
		{"foreign client", "s1", contracts.OrderInput{ClientID: "c2", Lines: items("p1", 1)}, apperr.KindAuthorization},
		{"no lines", "s1", contracts.OrderInput{ClientID: "c1"}, apperr.KindValidation},
		{"bad status", "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1), Status: "SHIPPED"}, apperr.KindValidation},
		{"negative total", "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1), Total: total(-1)}, apperr.KindValidation},
		{"unknown product", "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p9", 1)}, apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := setup(t)
			_, err := svc.Create(context.Background(), tt.seller, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, 3, repo.Stock().Stock("p1"))
		})
	}
}

func TestAmend(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	o, err := svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1, "p2", 2)})
	require.NoError(t, err)

	// p1 goes 1 -> 3, p2 is omitted and kept
	amended, err := svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{Lines: items("p1", 3)})
	require.NoError(t, err)
	require.Len(t, amended.Lines, 2)
	assert.Equal(t, 3, amended.Lines[0].Quantity)
	assert.Equal(t, 2, amended.Lines[1].Quantity)
	assert.Equal(t, 4600.0, amended.Total)
	assert.Equal(t, 0, repo.Stock().Stock("p1"))
	assert.Equal(t, 8, repo.Stock().Stock("p2"))

	// same amendment again does not move stock
	_, err = svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{Lines: items("p1", 3)})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Stock().Stock("p1"))

	// reducing returns stock
	amended, err = svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{Lines: items("p2", 1), Status: "CANCELADO"})
	require.NoError(t, err)
	assert.Equal(t, 9, repo.Stock().Stock("p2"))
	assert.Equal(t, contracts.OrderCancelled, amended.Status)

	got, err := svc.Get(ctx, "s1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, amended, got)
}

func TestAmend_StatusOnly(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	o, err := svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 2)})
	require.NoError(t, err)

	amended, err := svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{Status: "COMPLETADO", Total: total(1500)})
	require.NoError(t, err)
	assert.Equal(t, contracts.OrderCompleted, amended.Status)
	assert.Equal(t, 1500.0, amended.Total)
	assert.Equal(t, o.Lines, amended.Lines)
	assert.Equal(t, 1, repo.Stock().Stock("p1"))
}

func TestAmend_ShortfallKeepsOrder(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	o, err := svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1)})
	require.NoError(t, err)

	_, err = svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{Lines: items("p1", 4)})
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	assert.Equal(t, 2, repo.Stock().Stock("p1"))

	got, err := svc.Get(ctx, "s1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Lines[0].Quantity)
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	o, err := svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 1)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "s2", o.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = svc.Amend(ctx, "s2", o.ID, contracts.OrderInput{Lines: items("p1", 1)})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = svc.Amend(ctx, "s1", o.ID, contracts.OrderInput{ClientID: "c2"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = svc.Get(ctx, "s1", "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestConcurrentOrders(t *testing.T) {
	svc, repo := setup(t)
	repo.PutProduct(contracts.Product{ID: "p3", Name: "Pixel 7", Stock: 25, Price: 500})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p3", qty)})
			if err == nil {
				mu.Lock()
				committed += qty
				mu.Unlock()
			}
		}(i%2 + 1)
	}
	wg.Wait()

	final := repo.Stock().Stock("p3")
	assert.GreaterOrEqual(t, final, 0)
	assert.Equal(t, 25-committed, final)
}

func TestMemoryRepository_Catalog(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	repo.PutProduct(contracts.Product{ID: "p3", Name: " iphone 13 ", Stock: 1})

	names, err := repo.ModelNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GALAXY S22", "IPHONE 13"}, names)

	_, err = svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p1", 2), Status: "COMPLETADO"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "s1", contracts.OrderInput{ClientID: "c1", Lines: items("p2", 1)})
	require.NoError(t, err)

	sales, err := repo.CompletedSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "iPhone 13", sales[0].Product)
	assert.Equal(t, 2, sales[0].Quantity)
}

func TestMemoryRepository_RevertsOnError(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	err := repo.InTx(ctx, func(tx Tx) error {
		if _, err := tx.Decrement(ctx, "p2", 4); err != nil {
			return err
		}
		require.NoError(t, tx.InsertOrder(ctx, contracts.Order{ID: "o1"}))
		return apperr.Internal("insert failed", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 10, repo.Stock().Stock("p2"))

	err = repo.InTx(ctx, func(tx Tx) error {
		_, err := tx.Order(ctx, "o1")
		return err
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
