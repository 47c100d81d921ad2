package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
	"github.com/stitchmart/stitchmart-backend/internal/modules/sequence"
)

// countingAllocator wraps the real allocator so tests can assert how many
// numbers are consumed.
type countingAllocator struct {
	mu    sync.Mutex
	inner sequence.Service
	calls int
}

func (a *countingAllocator) Allocate(ctx context.Context, domain sequence.Domain) (string, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.inner.Allocate(ctx, domain)
}

func (a *countingAllocator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newBillingFixture(t *testing.T) (*order.MemoryRepository, *countingAllocator, Service) {
	t.Helper()
	repo := order.NewMemoryRepository()
	alloc := &countingAllocator{inner: sequence.NewService(sequence.NewMemoryRepository())}
	return repo, alloc, NewService(repo, alloc, zap.NewNop())
}

func seedOrder(t *testing.T, repo *order.MemoryRepository, paid bool, status order.Status, total float64) *order.Order {
	t.Helper()
	o := &order.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-20260826-TEST",
		Status:        status,
		PaymentMethod: order.MethodOnline,
		PaymentStatus: order.PaymentPending,
		Subtotal:      total,
		Total:         total,
		Currency:      "INR",
	}
	if err := repo.CreateOrder(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	if paid {
		if _, err := repo.MarkPaid(context.Background(), o.ID, "gw_order", "pay_"+o.ID.String()[:8]); err != nil {
			t.Fatal(err)
		}
	}
	return o
}

func TestIssueInvoiceAssignsNumber(t *testing.T) {
	repo, alloc, svc := newBillingFixture(t)
	o := seedOrder(t, repo, true, order.StatusPlaced, 1000)

	number, err := svc.IssueInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("IssueInvoice failed: %v", err)
	}
	if !strings.HasPrefix(number, "INV-") {
		t.Errorf("expected INV- prefix, got %s", number)
	}
	if alloc.count() != 1 {
		t.Errorf("expected 1 allocation, got %d", alloc.count())
	}

	fresh, _ := repo.GetOrderByID(context.Background(), o.ID)
	if fresh.InvoiceNumber == nil || *fresh.InvoiceNumber != number {
		t.Errorf("expected invoice number persisted on order")
	}
}

func TestIssueInvoiceIdempotent(t *testing.T) {
	repo, alloc, svc := newBillingFixture(t)
	o := seedOrder(t, repo, true, order.StatusPlaced, 1000)

	first, err := svc.IssueInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.IssueInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("repeat issuance must return the same number: %s vs %s", first, second)
	}
	if alloc.count() != 1 {
		t.Errorf("allocator must not run for an order that already holds a number, got %d calls", alloc.count())
	}
}

func TestIssueInvoiceEligibility(t *testing.T) {
	repo, _, svc := newBillingFixture(t)

	unpaid := seedOrder(t, repo, false, order.StatusPlaced, 1000)
	if _, err := svc.IssueInvoice(context.Background(), unpaid.ID); !errors.Is(err, ErrNotEligible) {
		t.Errorf("unpaid order: expected ErrNotEligible, got %v", err)
	}

	cancelled := seedOrder(t, repo, true, order.StatusCancelled, 1000)
	if _, err := svc.IssueInvoice(context.Background(), cancelled.ID); !errors.Is(err, ErrNotEligible) {
		t.Errorf("cancelled order: expected ErrNotEligible, got %v", err)
	}

	ok, err := svc.InvoiceEligibility(context.Background(), unpaid.ID)
	if err != nil || ok {
		t.Errorf("unpaid order must be ineligible, got (%v, %v)", ok, err)
	}
	paid := seedOrder(t, repo, true, order.StatusPlaced, 1000)
	ok, err = svc.InvoiceEligibility(context.Background(), paid.ID)
	if err != nil || !ok {
		t.Errorf("paid order must be eligible, got (%v, %v)", ok, err)
	}
}

func TestConcurrentIssuanceSingleNumber(t *testing.T) {
	repo, _, svc := newBillingFixture(t)
	o := seedOrder(t, repo, true, order.StatusPlaced, 1000)

	const workers = 8
	numbers := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			number, err := svc.IssueInvoice(context.Background(), o.ID)
			if err != nil {
				t.Errorf("IssueInvoice failed: %v", err)
				return
			}
			numbers[i] = number
		}(i)
	}
	wg.Wait()

	fresh, _ := repo.GetOrderByID(context.Background(), o.ID)
	if fresh.InvoiceNumber == nil {
		t.Fatal("expected an invoice number on the order")
	}
	for i, number := range numbers {
		if number != *fresh.InvoiceNumber {
			t.Errorf("caller %d got %s, order holds %s", i, number, *fresh.InvoiceNumber)
		}
	}
}

func TestCreateCreditNoteBounds(t *testing.T) {
	repo, _, svc := newBillingFixture(t)
	o := seedOrder(t, repo, true, order.StatusPlaced, 1000)

	refund, err := svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: 900, Reason: "size exchange"})
	if err != nil {
		t.Fatalf("CreateCreditNote failed: %v", err)
	}
	if !strings.HasPrefix(refund.CreditNoteNumber, "CRN-") {
		t.Errorf("expected CRN- prefix, got %s", refund.CreditNoteNumber)
	}

	// 900 already refunded of 1000: a further 150 would exceed the total.
	_, err = svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: 150})
	if !errors.Is(err, order.ErrRefundExceedsTotal) {
		t.Fatalf("expected ErrRefundExceedsTotal, got %v", err)
	}

	// The remaining 100 is still refundable.
	if _, err := svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: 100}); err != nil {
		t.Fatalf("refund up to the total must succeed, got %v", err)
	}

	fresh, _ := repo.GetOrderByID(context.Background(), o.ID)
	if got := fresh.RefundedTotal(); got != 1000 {
		t.Errorf("expected refunded total 1000, got %v", got)
	}
}

func TestCreateCreditNoteRequiresPaidOrder(t *testing.T) {
	repo, _, svc := newBillingFixture(t)
	o := seedOrder(t, repo, false, order.StatusPlaced, 1000)

	if _, err := svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: 100}); !errors.Is(err, ErrOrderNotPaid) {
		t.Fatalf("expected ErrOrderNotPaid, got %v", err)
	}
}

func TestCreateCreditNoteRejectsNonPositiveAmount(t *testing.T) {
	repo, _, svc := newBillingFixture(t)
	o := seedOrder(t, repo, true, order.StatusPlaced, 1000)

	if _, err := svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := svc.CreateCreditNote(context.Background(), o.ID, CreditNoteRequest{Amount: -50}); err == nil {
		t.Fatal("expected error for negative amount")
	}
}
