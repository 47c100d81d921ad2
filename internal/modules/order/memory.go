package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository with the same conditional-write
// semantics as the Postgres implementation. Used by unit tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

// NewMemoryRepository creates an empty in-memory order repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[uuid.UUID]*Order)}
}

func (r *MemoryRepository) CreateOrder(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cp := cloneOrder(o)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	cp.StatusHistory = append(cp.StatusHistory, &StatusChange{
		ID: uuid.New(), OrderID: o.ID, Status: o.Status, Actor: "customer", Note: "order placed", CreatedAt: now,
	})
	r.orders[o.ID] = cp
	return nil
}

func (r *MemoryRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Order
	for _, o := range r.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *MemoryRepository) FindIDByPaymentRef(ctx context.Context, paymentRef string) (uuid.UUID, bool, error) {
	if paymentRef == "" {
		return uuid.Nil, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, o := range r.orders {
		if o.GatewayPaymentRef == paymentRef {
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (r *MemoryRepository) FindIDByGatewayOrderRef(ctx context.Context, orderRef string) (uuid.UUID, bool, error) {
	if orderRef == "" {
		return uuid.Nil, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, o := range r.orders {
		if o.GatewayOrderRef == orderRef {
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (r *MemoryRepository) MarkPaid(ctx context.Context, id uuid.UUID, orderRef, paymentRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != PaymentPending {
		return false, nil
	}
	// Bind the payment reference under the same mutex hold as the status
	// flip: a reference already held by another order blocks the write.
	if paymentRef != "" {
		for otherID, other := range r.orders {
			if otherID != id && other.GatewayPaymentRef == paymentRef {
				return false, nil
			}
		}
	}
	o.PaymentStatus = PaymentPaid
	o.GatewayPaymentRef = paymentRef
	if o.GatewayOrderRef == "" {
		o.GatewayOrderRef = orderRef
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != PaymentPending {
		return false, nil
	}
	o.PaymentStatus = PaymentFailed
	o.UpdatedAt = time.Now()
	o.StatusHistory = append(o.StatusHistory, &StatusChange{
		ID: uuid.New(), OrderID: id, Status: o.Status, Actor: "gateway",
		Note: "payment failed: " + reason, CreatedAt: time.Now(),
	})
	return true, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, current, next Status, actor, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != current {
		return false, nil
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	o.StatusHistory = append(o.StatusHistory, &StatusChange{
		ID: uuid.New(), OrderID: id, Status: next, Actor: actor, Note: note, CreatedAt: time.Now(),
	})
	return true, nil
}

func (r *MemoryRepository) AppendNote(ctx context.Context, id uuid.UUID, actor, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.StatusHistory = append(o.StatusHistory, &StatusChange{
		ID: uuid.New(), OrderID: id, Status: o.Status, Actor: actor, Note: note, CreatedAt: time.Now(),
	})
	return nil
}

func (r *MemoryRepository) SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.InvoiceNumber != nil {
		return false, nil
	}
	o.InvoiceNumber = &number
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryRepository) AddRefund(ctx context.Context, orderID uuid.UUID, refund *Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if o.RefundedTotal()+refund.Amount > o.Total {
		return ErrRefundExceedsTotal
	}
	cp := *refund
	cp.OrderID = orderID
	cp.CreatedAt = time.Now()
	o.Refunds = append(o.Refunds, &cp)
	return nil
}

// SetStockDeducted flips the settlement flag; the inventory ledger's memory
// store calls this to mirror what its Postgres transaction does to the orders
// table.
func (r *MemoryRepository) SetStockDeducted(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.StockDeducted = true
	}
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = make([]*LineItem, len(o.Items))
	for i, it := range o.Items {
		c := *it
		cp.Items[i] = &c
	}
	cp.StatusHistory = make([]*StatusChange, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		c := *h
		cp.StatusHistory[i] = &c
	}
	cp.Refunds = make([]*Refund, len(o.Refunds))
	for i, ref := range o.Refunds {
		c := *ref
		cp.Refunds[i] = &c
	}
	if o.InvoiceNumber != nil {
		n := *o.InvoiceNumber
		cp.InvoiceNumber = &n
	}
	return &cp
}
