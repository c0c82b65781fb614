package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/inventory"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Service is the order use-case layer
type Service struct {
	repo     Repository
	reserver *inventory.Reserver
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(repo Repository, reserver *inventory.Reserver, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		reserver: reserver,
		logger:   log.Component("orders"),
		now:      time.Now,
	}
}

// Create reserves stock and stores a new order for one of the seller's clients
func (s *Service) Create(ctx context.Context, sellerID string, in contracts.OrderInput) (*contracts.Order, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, apperr.Authorization("seller identity required")
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, apperr.NoData("client is required")
	}
	status, err := resolveStatus(in.Status, contracts.OrderPending)
	if err != nil {
		return nil, err
	}
	if err := validateTotal(in.Total); err != nil {
		return nil, err
	}

	var order contracts.Order
	err = s.repo.InTx(ctx, func(tx Tx) error {
		if err := ownClient(ctx, tx, clientID, sellerID); err != nil {
			return err
		}

		reserved, err := s.reserver.Reserve(ctx, tx, in.Lines)
		if err != nil {
			return err
		}

		lines := mergeLines(nil, reserved, in.Lines)
		order = contracts.Order{
			ID:        uuid.NewString(),
			Lines:     lines,
			Total:     totalOf(in.Total, lines),
			ClientID:  clientID,
			SellerID:  sellerID,
			Status:    status,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"client":   order.ClientID,
		"lines":    len(order.Lines),
		"total":    order.Total,
	}).Info("order created")

	return &order, nil
}

// Amend updates an existing order. Included products replace their lines,
// omitted ones are kept; stock moves only by the difference.
func (s *Service) Amend(ctx context.Context, sellerID, orderID string, in contracts.OrderInput) (*contracts.Order, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, apperr.Authorization("seller identity required")
	}
	if err := validateTotal(in.Total); err != nil {
		return nil, err
	}

	var order contracts.Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		existing, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if existing.SellerID != sellerID {
			return apperr.Authorization("order does not belong to seller")
		}

		clientID := strings.TrimSpace(in.ClientID)
		if clientID == "" {
			clientID = existing.ClientID
		}
		if err := ownClient(ctx, tx, clientID, sellerID); err != nil {
			return err
		}

		status, err := resolveStatus(in.Status, existing.Status)
		if err != nil {
			return err
		}

		order = existing
		order.ClientID = clientID
		order.Status = status

		if len(in.Lines) > 0 {
			reserved, err := s.reserver.Amend(ctx, tx, existing.Lines, in.Lines)
			if err != nil {
				return err
			}
			order.Lines = mergeLines(existing.Lines, reserved, in.Lines)
			order.Total = totalOf(in.Total, order.Lines)
		} else if in.Total != nil {
			order.Total = *in.Total
		}

		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"lines":    len(order.Lines),
		"status":   order.Status,
	}).Info("order amended")

	return &order, nil
}

// Get returns an order owned by the seller
func (s *Service) Get(ctx context.Context, sellerID, orderID string) (*contracts.Order, error) {
	var order contracts.Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if o.SellerID != sellerID {
			return apperr.Authorization("order does not belong to seller")
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func ownClient(ctx context.Context, tx Tx, clientID, sellerID string) error {
	c, err := tx.Client(ctx, clientID)
	if err != nil {
		return err
	}
	if c.SellerID != sellerID {
		return apperr.Authorization("client does not belong to seller")
	}
	return nil
}

func resolveStatus(raw string, fallback contracts.OrderStatus) (contracts.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	status, ok := contracts.ParseOrderStatus(raw)
	if !ok {
		return "", apperr.Validation("invalid order status: " + raw)
	}
	return status, nil
}

func validateTotal(total *float64) error {
	if total != nil && *total < 0 {
		return apperr.Validation("total must not be negative")
	}
	return nil
}

// totalOf prefers the caller's total, else prices the lines
func totalOf(given *float64, lines []contracts.LineItem) float64 {
	if given != nil {
		return *given
	}
	var sum float64
	for _, l := range lines {
		sum += l.Price * float64(l.Quantity)
	}
	return sum
}

// mergeLines replaces the lines of reserved products and appends new ones
// in request order
func mergeLines(existing []contracts.LineItem, reserved []inventory.Reserved, requested []contracts.LineItem) []contracts.LineItem {
	byID := make(map[string]inventory.Reserved, len(reserved))
	for _, r := range reserved {
		byID[r.ProductID] = r
	}
	toLine := func(r inventory.Reserved) contracts.LineItem {
		return contracts.LineItem{ProductID: r.ProductID, Quantity: r.Quantity, Name: r.Name, Price: r.Price}
	}

	out := make([]contracts.LineItem, 0, len(existing)+len(reserved))
	placed := make(map[string]bool, len(reserved))
	for _, l := range existing {
		if placed[l.ProductID] {
			continue
		}
		if r, ok := byID[l.ProductID]; ok {
			out = append(out, toLine(r))
			placed[l.ProductID] = true
			continue
		}
		out = append(out, l)
	}
	for _, l := range requested {
		id := strings.TrimSpace(l.ProductID)
		if placed[id] {
			continue
		}
		if r, ok := byID[id]; ok {
			out = append(out, toLine(r))
			placed[id] = true
		}
	}
	return out
}
