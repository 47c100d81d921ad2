package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a sellable unit with per-variant stock. A variant is a size
// ("S", "M", "XL") for retail or a bundle key ("B12") for wholesale.
//
// Once IsLocked is true the price is frozen forever: the product has been
// sold at least once and changing its price would corrupt accounting.
type Product struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Price         float64        `json:"price"`
	Currency      string         `json:"currency"`
	Stock         map[string]int `json:"stock"` // variant → available quantity
	InStock       bool           `json:"in_stock"`
	IsLocked      bool           `json:"is_locked"`
	LockedAt      *time.Time     `json:"locked_at,omitempty"`
	LockedByOrder *uuid.UUID     `json:"locked_by_order,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasStock reports whether any variant still has quantity.
func (p *Product) HasStock() bool {
	for _, q := range p.Stock {
		if q > 0 {
			return true
		}
	}
	return false
}

// Shortfall describes one line item that could not be covered by stock.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Variant   string    `json:"variant"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError aborts a whole-order deduction. No inventory row is
// mutated when it is returned.
type InsufficientStockError struct {
	OrderID    uuid.UUID   `json:"order_id"`
	Shortfalls []Shortfall `json:"shortfalls"`
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s/%s: requested %d, available %d",
			s.ProductID, s.Variant, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// ErrPriceLocked is returned when a price change targets a locked product
// with a value different from the current price.
var ErrPriceLocked = errors.New("product price is locked by a completed sale")

// ErrProductNotFound is returned when a product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ── Request DTOs ──────────────────────────────────────────────────────────────

// CreateProductRequest is the payload for adding a product.
type CreateProductRequest struct {
	Name  string         `json:"name"`
	Price float64        `json:"price"`
	Stock map[string]int `json:"stock,omitempty"`
}

// UpdatePriceRequest is the payload for a price change.
type UpdatePriceRequest struct {
	Price float64 `json:"price"`
}

// RestockRequest adds quantity to one variant.
type RestockRequest struct {
	Variant  string `json:"variant"`
	Quantity int    `json:"quantity"`
}
