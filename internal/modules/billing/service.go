package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/metrics"
	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
	"github.com/stitchmart/stitchmart-backend/internal/modules/sequence"
)

var (
	// ErrNotEligible means the order may not receive an invoice: it is either
	// unpaid or cancelled.
	ErrNotEligible = errors.New("order is not eligible for an invoice")

	// ErrOrderNotPaid means a credit note was requested for an unpaid order.
	ErrOrderNotPaid = errors.New("credit notes require a paid order")
)

// OrderStore is the slice of the order repository billing needs.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) (bool, error)
	AddRefund(ctx context.Context, orderID uuid.UUID, r *order.Refund) error
}

// Allocator issues document numbers. Implemented by the sequence service.
type Allocator interface {
	Allocate(ctx context.Context, domain sequence.Domain) (string, error)
}

// Service owns invoice and credit-note issuance.
type Service interface {
	// CanIssueInvoice is the eligibility predicate: the order is paid and not
	// cancelled.
	CanIssueInvoice(o *order.Order) bool

	// InvoiceEligibility answers the eligibility query for an order id.
	InvoiceEligibility(ctx context.Context, orderID uuid.UUID) (bool, error)

	// IssueInvoice assigns an invoice number to an eligible order. Idempotent:
	// an order that already carries a number gets it back unchanged, and the
	// allocator is never called for it.
	IssueInvoice(ctx context.Context, orderID uuid.UUID) (string, error)

	// CreateCreditNote records a refund against a paid order, bounded so the
	// sum of all refunds never exceeds the order total.
	CreateCreditNote(ctx context.Context, orderID uuid.UUID, req CreditNoteRequest) (*order.Refund, error)
}

type service struct {
	orders    OrderStore
	allocator Allocator
	log       *zap.Logger
}

// NewService creates a new billing service.
func NewService(orders OrderStore, allocator Allocator, log *zap.Logger) Service {
	return &service{orders: orders, allocator: allocator, log: log}
}

func (s *service) CanIssueInvoice(o *order.Order) bool {
	return o.PaymentStatus == order.PaymentPaid && o.Status != order.StatusCancelled
}

func (s *service) InvoiceEligibility(ctx context.Context, orderID uuid.UUID) (bool, error) {
	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.CanIssueInvoice(o), nil
}

func (s *service) IssueInvoice(ctx context.Context, orderID uuid.UUID) (string, error) {
	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	// Idempotency gate: the allocator must never run for an order that
	// already holds a number.
	if o.InvoiceNumber != nil {
		return *o.InvoiceNumber, nil
	}
	if !s.CanIssueInvoice(o) {
		return "", ErrNotEligible
	}

	number, err := s.allocator.Allocate(ctx, sequence.DomainInvoice)
	if err != nil {
		return "", err
	}

	applied, err := s.orders.SetInvoiceNumber(ctx, orderID, number)
	if err != nil {
		return "", err
	}
	if !applied {
		// A concurrent issuer won; its number stands and the one allocated
		// here is retired, never handed to another order.
		s.log.Warn("invoice number retired after concurrent issuance",
			zap.String("order_id", orderID.String()),
			zap.String("retired_number", number))
		fresh, err := s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			return "", err
		}
		if fresh.InvoiceNumber == nil {
			return "", fmt.Errorf("invoice number assignment lost for order %s", orderID)
		}
		return *fresh.InvoiceNumber, nil
	}

	metrics.InvoicesIssued.Inc()
	return number, nil
}

func (s *service) CreateCreditNote(ctx context.Context, orderID uuid.UUID, req CreditNoteRequest) (*order.Refund, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}

	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != order.PaymentPaid {
		return nil, ErrOrderNotPaid
	}
	// Cheap pre-check; AddRefund re-verifies the bound transactionally.
	if o.RefundedTotal()+req.Amount > o.Total {
		return nil, order.ErrRefundExceedsTotal
	}

	number, err := s.allocator.Allocate(ctx, sequence.DomainCreditNote)
	if err != nil {
		return nil, err
	}

	refund := &order.Refund{
		ID:               uuid.New(),
		OrderID:          orderID,
		CreditNoteNumber: number,
		Amount:           round2(req.Amount),
		Reason:           req.Reason,
	}
	if err := s.orders.AddRefund(ctx, orderID, refund); err != nil {
		if errors.Is(err, order.ErrRefundExceedsTotal) {
			s.log.Warn("credit-note number retired after refund bound rejection",
				zap.String("order_id", orderID.String()),
				zap.String("retired_number", number))
		}
		return nil, err
	}
	return refund, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
