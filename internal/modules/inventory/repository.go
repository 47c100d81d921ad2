package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// Repository defines data access for inventory units.
type Repository interface {
	// CreateProduct persists a product and its initial variant stock.
	CreateProduct(ctx context.Context, p *Product) error

	// GetProduct retrieves a product with its per-variant stock.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// Restock adds quantity to a variant, creating the row if needed, and
	// recomputes the in-stock flag.
	Restock(ctx context.Context, productID uuid.UUID, variant string, qty int) error

	// DeductForOrder atomically validates and deducts stock for every line item
	// of the order, applies the first-sale price lock to each affected product,
	// and flips the order's stock-deducted flag — all in one transaction.
	//
	// Returns (false, nil) as an idempotent no-op when the order was already
	// deducted, and (*InsufficientStockError) when any line cannot be covered,
	// in which case nothing was written.
	DeductForOrder(ctx context.Context, orderID uuid.UUID, items []*order.LineItem, now time.Time) (bool, error)

	// SetPrice writes the new price only when the product is unlocked or the
	// price is unchanged. Returns false when the lock rejected the write.
	SetPrice(ctx context.Context, productID uuid.UUID, price float64) (bool, error)
}
