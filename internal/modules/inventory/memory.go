package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// OrderFlagStore mirrors the stock-deducted flag onto the order record, the
// way the Postgres transaction writes the orders table.
type OrderFlagStore interface {
	SetStockDeducted(id uuid.UUID)
}

// MemoryRepository is an in-memory Repository with the same all-or-nothing
// and idempotency semantics as the Postgres implementation.
type MemoryRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*Product
	deducted map[uuid.UUID]bool // settled order ids
	flags    OrderFlagStore     // optional
}

// NewMemoryRepository creates an empty in-memory inventory repository. flags
// may be nil.
func NewMemoryRepository(flags OrderFlagStore) *MemoryRepository {
	return &MemoryRepository{
		products: make(map[uuid.UUID]*Product),
		deducted: make(map[uuid.UUID]bool),
		flags:    flags,
	}
}

func (r *MemoryRepository) CreateProduct(ctx context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := cloneProduct(p)
	cp.InStock = cp.HasStock()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.products[p.ID] = cp
	return nil
}

func (r *MemoryRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *MemoryRepository) Restock(ctx context.Context, productID uuid.UUID, variant string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock[variant] += qty
	p.InStock = p.HasStock()
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) DeductForOrder(ctx context.Context, orderID uuid.UUID, items []*order.LineItem, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deducted[orderID] {
		return false, nil
	}

	var shortfalls []Shortfall
	for _, it := range items {
		p, ok := r.products[it.ProductID]
		available := 0
		if ok {
			available = p.Stock[it.Variant]
		}
		if available < it.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: it.ProductID, Variant: it.Variant,
				Requested: it.Quantity, Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return false, &InsufficientStockError{OrderID: orderID, Shortfalls: shortfalls}
	}

	for _, it := range items {
		p := r.products[it.ProductID]
		p.Stock[it.Variant] -= it.Quantity
		p.InStock = p.HasStock()
		if !p.IsLocked {
			p.IsLocked = true
			t := now
			oid := orderID
			p.LockedAt = &t
			p.LockedByOrder = &oid
		}
		p.UpdatedAt = now
	}

	r.deducted[orderID] = true
	if r.flags != nil {
		r.flags.SetStockDeducted(orderID)
	}
	return true, nil
}

func (r *MemoryRepository) SetPrice(ctx context.Context, productID uuid.UUID, price float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return false, ErrProductNotFound
	}
	if p.IsLocked && p.Price != price {
		return false, nil
	}
	p.Price = price
	p.UpdatedAt = time.Now()
	return true, nil
}

// Deducted reports whether an order's stock has already been taken.
func (r *MemoryRepository) Deducted(orderID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deducted[orderID]
}

func cloneProduct(p *Product) *Product {
	cp := *p
	cp.Stock = make(map[string]int, len(p.Stock))
	for k, v := range p.Stock {
		cp.Stock[k] = v
	}
	if p.LockedAt != nil {
		t := *p.LockedAt
		cp.LockedAt = &t
	}
	if p.LockedByOrder != nil {
		o := *p.LockedByOrder
		cp.LockedByOrder = &o
	}
	return &cp
}
