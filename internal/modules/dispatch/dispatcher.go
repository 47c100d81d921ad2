// Package dispatch runs the best-effort actions that follow a durable
// settlement: invoice issuance, coupon usage accounting, analytics, the
// confirmation email and the settlement event. Every dependency is injected
// explicitly so no module reaches back into another at call time.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// OrderGetter loads the settled order.
type OrderGetter interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// InvoiceIssuer assigns the invoice number (billing service).
type InvoiceIssuer interface {
	IssueInvoice(ctx context.Context, orderID uuid.UUID) (string, error)
}

// UsageRecorder books coupon/combo usage (promo service).
type UsageRecorder interface {
	RecordUsage(ctx context.Context, o *order.Order) error
}

// SettlementRecorder updates the analytics cache (analytics recorder).
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, o *order.Order) error
}

// Notifier sends the confirmation email (notification mailer).
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// EventPublisher emits the settlement event (kafka producer).
type EventPublisher interface {
	Publish(key, value []byte)
}

// SettledEvent is the envelope published when an order settles.
type SettledEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	PaymentRef    string    `json:"payment_ref"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventOrderSettled is the event type carried in SettledEvent.
const EventOrderSettled = "order.settled"

// Dispatcher fans a settled order out to the side-effect services. All
// fields except orders and log may be nil; nil actions are skipped.
type Dispatcher struct {
	orders    OrderGetter
	invoices  InvoiceIssuer
	usage     UsageRecorder
	analytics SettlementRecorder
	notifier  Notifier
	events    EventPublisher
	log       *zap.Logger
}

// New creates a dispatcher with its downstream services.
func New(orders OrderGetter, invoices InvoiceIssuer, usage UsageRecorder,
	analytics SettlementRecorder, notifier Notifier, events EventPublisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		orders:    orders,
		invoices:  invoices,
		usage:     usage,
		analytics: analytics,
		notifier:  notifier,
		events:    events,
		log:       log,
	}
}

// Dispatch runs every action for the order. Each action is isolated: a
// failure (or panic) is logged and the remaining actions still run; nothing
// here can roll back the settlement that already committed. Dispatch may be
// invoked more than once per order — each action is idempotent or safely
// re-runnable on its own.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) {
	o, err := d.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		d.log.Error("dispatch aborted: order load failed",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}

	var invoiceNumber string
	if d.invoices != nil {
		d.run(o, "invoice_issuance", func() error {
			number, err := d.invoices.IssueInvoice(ctx, o.ID)
			invoiceNumber = number
			return err
		})
	}
	if d.usage != nil {
		d.run(o, "coupon_usage", func() error { return d.usage.RecordUsage(ctx, o) })
	}
	if d.analytics != nil {
		d.run(o, "analytics_cache", func() error { return d.analytics.RecordSettlement(ctx, o) })
	}
	if d.notifier != nil {
		d.run(o, "confirmation_email", func() error { return d.notifier.SendOrderConfirmation(ctx, o) })
	}
	if d.events != nil {
		d.run(o, "settlement_event", func() error {
			return d.publishSettled(o, invoiceNumber)
		})
	}
}

func (d *Dispatcher) run(o *order.Order, action string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("downstream action panicked",
				zap.String("action", action),
				zap.String("order_id", o.ID.String()),
				zap.Any("panic", rec))
		}
	}()
	if err := fn(); err != nil {
		d.log.Warn("downstream action failed",
			zap.String("action", action),
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}

func (d *Dispatcher) publishSettled(o *order.Order, invoiceNumber string) error {
	if invoiceNumber == "" && o.InvoiceNumber != nil {
		invoiceNumber = *o.InvoiceNumber
	}
	event := SettledEvent{
		EventType:     EventOrderSettled,
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		PaymentRef:    o.GatewayPaymentRef,
		InvoiceNumber: invoiceNumber,
		Total:         o.Total,
		Currency:      o.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Key by order id so all events for one order stay ordered per partition.
	d.events.Publish([]byte(o.ID.String()), value)
	return nil
}
