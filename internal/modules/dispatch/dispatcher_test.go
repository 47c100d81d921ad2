package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

type mockOrders struct {
	o   *order.Order
	err error
}

func (m *mockOrders) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.o, m.err
}

type mockInvoices struct {
	number string
	err    error
	panics bool
	calls  int
}

func (m *mockInvoices) IssueInvoice(ctx context.Context, orderID uuid.UUID) (string, error) {
	m.calls++
	if m.panics {
		panic("invoice store unavailable")
	}
	return m.number, m.err
}

type mockUsage struct {
	calls int
	err   error
}

func (m *mockUsage) RecordUsage(ctx context.Context, o *order.Order) error {
	m.calls++
	return m.err
}

type mockAnalytics struct {
	calls int
	err   error
}

func (m *mockAnalytics) RecordSettlement(ctx context.Context, o *order.Order) error {
	m.calls++
	return m.err
}

type mockNotifier struct {
	calls int
	err   error
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	m.calls++
	return m.err
}

type mockPublisher struct {
	mu       sync.Mutex
	keys     [][]byte
	payloads [][]byte
}

func (m *mockPublisher) Publish(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	m.payloads = append(m.payloads, value)
}

func settledOrder() *order.Order {
	return &order.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-20260826-TEST",
		Status:            order.StatusPlaced,
		PaymentStatus:     order.PaymentPaid,
		GatewayPaymentRef: "pay_1",
		CouponCode:        "FIRST50",
		Total:             950,
		Currency:          "INR",
	}
}

func TestDispatchRunsAllActions(t *testing.T) {
	o := settledOrder()
	invoices := &mockInvoices{number: "INV-2026-000001"}
	usage := &mockUsage{}
	analytics := &mockAnalytics{}
	notifier := &mockNotifier{}
	publisher := &mockPublisher{}

	d := New(&mockOrders{o: o}, invoices, usage, analytics, notifier, publisher, zap.NewNop())
	d.Dispatch(context.Background(), o.ID)

	if invoices.calls != 1 || usage.calls != 1 || analytics.calls != 1 || notifier.calls != 1 {
		t.Errorf("expected every action to run once: invoices=%d usage=%d analytics=%d notifier=%d",
			invoices.calls, usage.calls, analytics.calls, notifier.calls)
	}
	if len(publisher.payloads) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.payloads))
	}

	var event SettledEvent
	if err := json.Unmarshal(publisher.payloads[0], &event); err != nil {
		t.Fatal(err)
	}
	if event.EventType != EventOrderSettled {
		t.Errorf("expected event type %s, got %s", EventOrderSettled, event.EventType)
	}
	if event.InvoiceNumber != "INV-2026-000001" {
		t.Errorf("expected invoice number in event, got %q", event.InvoiceNumber)
	}
	if string(publisher.keys[0]) != o.ID.String() {
		t.Errorf("events must be keyed by order id, got %s", publisher.keys[0])
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	o := settledOrder()
	invoices := &mockInvoices{err: errors.New("allocator down")}
	usage := &mockUsage{err: errors.New("promo store down")}
	analytics := &mockAnalytics{}
	notifier := &mockNotifier{}
	publisher := &mockPublisher{}

	d := New(&mockOrders{o: o}, invoices, usage, analytics, notifier, publisher, zap.NewNop())
	d.Dispatch(context.Background(), o.ID)

	if analytics.calls != 1 {
		t.Errorf("analytics must run despite earlier failures, got %d calls", analytics.calls)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier must run despite earlier failures, got %d calls", notifier.calls)
	}
	if len(publisher.payloads) != 1 {
		t.Errorf("event must publish despite earlier failures, got %d", len(publisher.payloads))
	}
}

func TestDispatchSurvivesPanic(t *testing.T) {
	o := settledOrder()
	invoices := &mockInvoices{panics: true}
	notifier := &mockNotifier{}

	d := New(&mockOrders{o: o}, invoices, nil, nil, notifier, nil, zap.NewNop())
	d.Dispatch(context.Background(), o.ID)

	if notifier.calls != 1 {
		t.Errorf("a panicking action must not stop the rest, notifier calls=%d", notifier.calls)
	}
}

func TestDispatchSkipsNilActions(t *testing.T) {
	o := settledOrder()
	d := New(&mockOrders{o: o}, nil, nil, nil, nil, nil, zap.NewNop())
	// Must not panic.
	d.Dispatch(context.Background(), o.ID)
}

func TestDispatchAbortsWhenOrderLoadFails(t *testing.T) {
	invoices := &mockInvoices{}
	d := New(&mockOrders{err: order.ErrNotFound}, invoices, nil, nil, nil, nil, zap.NewNop())
	d.Dispatch(context.Background(), uuid.New())

	if invoices.calls != 0 {
		t.Errorf("no actions may run when the order cannot be loaded, got %d calls", invoices.calls)
	}
}
