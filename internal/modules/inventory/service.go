package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/metrics"
	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// Service defines the inventory ledger business logic.
type Service interface {
	// SettleInventory validates and deducts stock for every line item of a
	// paid order, all-or-nothing, and applies the first-sale price lock.
	// Calling it again for an already-settled order is a success no-op.
	SettleInventory(ctx context.Context, o *order.Order) error

	// UpdatePrice changes a product's price. Rejected with ErrPriceLocked when
	// the product is locked and the value differs; writing the identical price
	// succeeds as a no-op.
	UpdatePrice(ctx context.Context, productID string, price float64) (*Product, error)

	// GetUnitPrice returns the current price and availability of a variant.
	GetUnitPrice(ctx context.Context, productID uuid.UUID, variant string) (float64, bool, error)

	AddProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	Restock(ctx context.Context, productID string, req RestockRequest) (*Product, error)
}

type service struct {
	repo Repository
	log  *zap.Logger
}

// NewService creates a new inventory service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) SettleInventory(ctx context.Context, o *order.Order) error {
	if o.StockDeducted {
		return nil
	}

	applied, err := s.repo.DeductForOrder(ctx, o.ID, o.Items, time.Now())
	if err != nil {
		if ise, ok := err.(*InsufficientStockError); ok {
			metrics.OversellRejections.Inc()
			s.log.Warn("order settlement rejected for insufficient stock",
				zap.String("order_id", o.ID.String()),
				zap.Int("shortfalls", len(ise.Shortfalls)))
		}
		return err
	}
	if !applied {
		// Another trigger already settled this order.
		s.log.Info("inventory already settled", zap.String("order_id", o.ID.String()))
	}
	o.StockDeducted = true
	return nil
}

func (s *service) UpdatePrice(ctx context.Context, productID string, price float64) (*Product, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be greater than 0")
	}

	applied, err := s.repo.SetPrice(ctx, pid, price)
	if err != nil {
		return nil, err
	}
	if !applied {
		p, err := s.repo.GetProduct(ctx, pid)
		if err != nil {
			return nil, err
		}
		if p.IsLocked && p.Price != price {
			return nil, ErrPriceLocked
		}
		return p, nil
	}
	return s.repo.GetProduct(ctx, pid)
}

func (s *service) GetUnitPrice(ctx context.Context, productID uuid.UUID, variant string) (float64, bool, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, false, err
	}
	return p.Price, p.Stock[variant] > 0, nil
}

func (s *service) AddProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("price must be greater than 0")
	}

	p := &Product{
		ID:       uuid.New(),
		Name:     req.Name,
		Price:    req.Price,
		Currency: "INR",
		Stock:    req.Stock,
	}
	if p.Stock == nil {
		p.Stock = map[string]int{}
	}
	p.InStock = p.HasStock()

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist product: %w", err)
	}
	return s.repo.GetProduct(ctx, p.ID)
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	return s.repo.GetProduct(ctx, pid)
}

func (s *service) Restock(ctx context.Context, productID string, req RestockRequest) (*Product, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	if req.Variant == "" {
		return nil, fmt.Errorf("variant is required")
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be greater than 0")
	}
	if err := s.repo.Restock(ctx, pid, req.Variant, req.Quantity); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, pid)
}
