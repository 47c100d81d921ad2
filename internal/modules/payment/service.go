package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/metrics"
	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

var (
	// ErrAuthenticationFailed covers every signature problem. The message is
	// deliberately uniform so callers cannot probe which check failed.
	ErrAuthenticationFailed = errors.New("payment verification failed")

	// ErrReplayDetected means the payment reference is already bound to a
	// different order. Two orders must never share a payment reference.
	ErrReplayDetected = errors.New("payment reference already used")

	// ErrOrderMismatch means the incoming gateway order reference does not
	// match the one stored on the order.
	ErrOrderMismatch = errors.New("gateway order reference does not match order")

	// ErrPaymentNotPending means the order is in a payment state (FAILED) from
	// which a success transition is not allowed.
	ErrPaymentNotPending = errors.New("order payment is not pending")
)

// InventoryLedger settles stock for a paid order. Implemented by the
// inventory service.
type InventoryLedger interface {
	SettleInventory(ctx context.Context, o *order.Order) error
}

// EffectsDispatcher runs best-effort post-settlement actions. Implemented by
// the dispatch module.
type EffectsDispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID)
}

// Service is the payment verification gateway: the single entry point through
// which an order becomes paid, regardless of which trigger (redirect-back
// callback, asynchronous webhook, cash collection at delivery) reports it.
type Service interface {
	// ConfirmCallback processes the client redirect-back confirmation.
	ConfirmCallback(ctx context.Context, req CallbackRequest) (*order.Order, error)

	// HandleWebhook processes a raw gateway webhook. The returned error is for
	// internal recording only; the transport always acks the gateway.
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// CollectOnDelivery runs the payment-success path for a cash-on-delivery
	// order at the moment of delivery.
	CollectOnDelivery(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	orders        order.Repository
	ledger        InventoryLedger
	effects       EffectsDispatcher
	secret        string
	webhookSecret string
	log           *zap.Logger
}

// NewService creates a new payment verification service.
func NewService(orders order.Repository, ledger InventoryLedger, effects EffectsDispatcher, secret, webhookSecret string, log *zap.Logger) Service {
	return &service{
		orders:        orders,
		ledger:        ledger,
		effects:       effects,
		secret:        secret,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (s *service) ConfirmCallback(ctx context.Context, req CallbackRequest) (*order.Order, error) {
	if !VerifyCallbackSignature(s.secret, req.GatewayOrderRef, req.GatewayPaymentRef, req.Signature) {
		s.log.Warn("callback signature mismatch", zap.String("order_id", req.OrderID))
		return nil, ErrAuthenticationFailed
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	if err := s.settle(ctx, orderID, req.GatewayOrderRef, req.GatewayPaymentRef); err != nil {
		return nil, err
	}
	return s.orders.GetOrderByID(ctx, orderID)
}

func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(s.webhookSecret, body, signature) {
		s.log.Warn("webhook signature mismatch")
		return ErrAuthenticationFailed
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("malformed webhook body: %w", err)
	}

	switch event.Event {
	case EventPaymentCaptured:
		orderID, err := s.resolveOrder(ctx, event.Payment)
		if err != nil {
			return err
		}
		return s.settle(ctx, orderID, event.Payment.OrderRef, event.Payment.PaymentRef)

	case EventPaymentFailed:
		orderID, err := s.resolveOrder(ctx, event.Payment)
		if err != nil {
			return err
		}
		return s.markFailed(ctx, orderID, event.Payment.Reason)

	default:
		s.log.Info("ignoring webhook event", zap.String("event", event.Event))
		return nil
	}
}

func (s *service) CollectOnDelivery(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.PaymentStatus == order.PaymentPaid {
		return nil
	}
	// Cash has no gateway reference; the synthetic ref keeps the payment
	// record unique per order for the replay scan.
	paymentRef := "COD-" + orderID.String()[:8]
	return s.settle(ctx, orderID, o.GatewayOrderRef, paymentRef)
}

// settle is the shared idempotent success path. Both unordered triggers and
// the delivery collection converge here; the conditional PENDING → PAID write
// guarantees the sequence after it runs exactly once per order.
func (s *service) settle(ctx context.Context, orderID uuid.UUID, orderRef, paymentRef string) error {
	boundID, bound, err := s.orders.FindIDByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}
	if bound && boundID != orderID {
		metrics.ReplayRejections.Inc()
		s.log.Error("payment reference replay detected",
			zap.String("payment_ref", paymentRef),
			zap.String("bound_order", boundID.String()),
			zap.String("claimed_order", orderID.String()))
		return ErrReplayDetected
	}

	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.GatewayOrderRef != "" && orderRef != "" && o.GatewayOrderRef != orderRef {
		return ErrOrderMismatch
	}
	if o.PaymentStatus == order.PaymentPaid {
		metrics.DuplicateTriggers.Inc()
		return nil
	}

	applied, err := s.orders.MarkPaid(ctx, orderID, orderRef, paymentRef)
	if err != nil {
		return err
	}
	if !applied {
		fresh, err := s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		switch fresh.PaymentStatus {
		case order.PaymentPaid:
			// The other trigger won the race; this arrival is a no-op.
			metrics.DuplicateTriggers.Inc()
			return nil
		case order.PaymentPending:
			// Still pending means the status guard passed and the write was
			// blocked by the reference binding: another order claimed the
			// payment reference between the scan and the write.
			metrics.ReplayRejections.Inc()
			s.log.Error("payment reference replay detected at write",
				zap.String("payment_ref", paymentRef),
				zap.String("claimed_order", orderID.String()))
			return ErrReplayDetected
		default:
			return ErrPaymentNotPending
		}
	}

	metrics.Settlements.Inc()
	o.PaymentStatus = order.PaymentPaid
	o.GatewayPaymentRef = paymentRef

	// Inventory failure after capture is fatal-but-non-blocking: the payment
	// stands, the alert goes to the operators, and nothing retries
	// automatically (a blind retry could double-deduct).
	if err := s.ledger.SettleInventory(ctx, o); err != nil {
		metrics.SettlementAlerts.Inc()
		s.log.Error("stock deduction failed after payment capture; manual reconciliation required",
			zap.String("order_id", orderID.String()),
			zap.String("payment_ref", paymentRef),
			zap.Error(err))
		if noteErr := s.orders.AppendNote(ctx, orderID, "system",
			"settlement alert: stock deduction failed after payment capture: "+err.Error()); noteErr != nil {
			s.log.Error("failed to record settlement alert note",
				zap.String("order_id", orderID.String()), zap.Error(noteErr))
		}
		return nil
	}

	if s.effects != nil {
		s.effects.Dispatch(ctx, orderID)
	}
	return nil
}

func (s *service) markFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "gateway reported failure"
	}
	applied, err := s.orders.MarkPaymentFailed(ctx, orderID, reason)
	if err != nil {
		return err
	}
	if !applied {
		// Failure signals can arrive after a late success; never overwrite PAID.
		s.log.Info("ignoring failure signal for non-pending order",
			zap.String("order_id", orderID.String()))
	}
	return nil
}

// resolveOrder maps a webhook payment entity to the internal order id, via
// the echoed notes first, then the gateway order reference.
func (s *service) resolveOrder(ctx context.Context, p WebhookPayment) (uuid.UUID, error) {
	if raw, ok := p.Notes["order_id"]; ok {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, nil
		}
	}
	id, found, err := s.orders.FindIDByGatewayOrderRef(ctx, p.OrderRef)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, fmt.Errorf("no order for gateway reference %q", p.OrderRef)
	}
	return id, nil
}
