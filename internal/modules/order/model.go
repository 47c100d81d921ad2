package order

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks whether the money for an order has been collected.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Method indicates how the customer pays.
type Method string

const (
	MethodOnline         Method = "ONLINE"
	MethodCashOnDelivery Method = "COD"
)

// Order is the append-only record of a customer purchase. Orders are never
// physically deleted; cancellation is a status.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	OrderNumber       string          `json:"order_number"`
	Status            Status          `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentMethod     Method          `json:"payment_method"`
	StockDeducted     bool            `json:"stock_deducted"`
	GatewayOrderRef   string          `json:"gateway_order_ref,omitempty"`
	GatewayPaymentRef string          `json:"gateway_payment_ref,omitempty"`
	InvoiceNumber     *string         `json:"invoice_number,omitempty"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Subtotal          float64         `json:"subtotal"`
	Discount          float64         `json:"discount"`
	Total             float64         `json:"total"`
	Currency          string          `json:"currency"`
	Items             []*LineItem     `json:"items,omitempty"`
	StatusHistory     []*StatusChange `json:"status_history,omitempty"`
	Refunds           []*Refund       `json:"refunds,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// LineItem is a single product/variant position within an order. UnitPrice is
// captured at order time and never re-read from the catalog.
type LineItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Variant   string    `json:"variant"` // size ("M") or wholesale bundle key ("B12")
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
}

// StatusChange is one immutable entry of an order's status history.
type StatusChange struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    Status    `json:"status"`
	Actor     string    `json:"actor"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Refund is one credit note issued against an order. The sum of all refund
// amounts may never exceed the order total.
type Refund struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	CreditNoteNumber string    `json:"credit_note_number"`
	Amount           float64   `json:"amount"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// RefundedTotal returns the sum of all credit notes already issued.
func (o *Order) RefundedTotal() float64 {
	var sum float64
	for _, r := range o.Refunds {
		sum += r.Amount
	}
	return sum
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// CheckoutItem describes one cart position at checkout.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is the payload for creating a new order.
type PlaceOrderRequest struct {
	CustomerID      string         `json:"customer_id,omitempty"`
	Items           []CheckoutItem `json:"items"`
	PaymentMethod   string         `json:"payment_method,omitempty"` // ONLINE | COD
	CouponCode      string         `json:"coupon_code,omitempty"`
	Discount        float64        `json:"discount,omitempty"`
	GatewayOrderRef string         `json:"gateway_order_ref,omitempty"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Note   string `json:"note,omitempty"`
}
