package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for the order aggregate (order, line items,
// status history, refunds). Conditional writes return whether they applied so
// callers can implement first-writer-wins without read-modify-write races.
type Repository interface {
	// CreateOrder persists a new order and its items atomically, including the
	// initial status history entry.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrderByID retrieves a full order with items, history and refunds.
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListOrdersByCustomer returns all orders placed by a customer.
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error)

	// FindIDByPaymentRef returns the order currently holding the given gateway
	// payment reference, if any. Empty refs never match.
	FindIDByPaymentRef(ctx context.Context, paymentRef string) (uuid.UUID, bool, error)

	// FindIDByGatewayOrderRef resolves an order from its gateway order reference.
	FindIDByGatewayOrderRef(ctx context.Context, orderRef string) (uuid.UUID, bool, error)

	// MarkPaid atomically flips payment status PENDING → PAID and records the
	// gateway references. Returns false without writing if the order is no
	// longer pending; the first caller wins, later arrivals are no-ops.
	MarkPaid(ctx context.Context, id uuid.UUID, orderRef, paymentRef string) (bool, error)

	// MarkPaymentFailed flips PENDING → FAILED. A paid order is never
	// overwritten; returns false when the order is not pending.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)

	// UpdateStatus moves the order to the new status only if it is still in
	// the expected current status, appending a history entry in the same
	// transaction. Returns false when the guard did not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, current, next Status, actor, note string) (bool, error)

	// AppendNote records an informational history entry at the order's current
	// status without changing state.
	AppendNote(ctx context.Context, id uuid.UUID, actor, note string) error

	// SetInvoiceNumber assigns the invoice number only if none is set yet.
	// Returns false when the order already carries a number.
	SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) (bool, error)

	// AddRefund appends a credit-note record, enforcing transactionally that
	// the sum of refunds never exceeds the order total. Returns
	// ErrRefundExceedsTotal when the bound would be violated.
	AddRefund(ctx context.Context, orderID uuid.UUID, r *Refund) error
}
