package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pricer reads the current unit price and availability of a product variant.
// Implemented by the inventory service.
type Pricer interface {
	GetUnitPrice(ctx context.Context, productID uuid.UUID, variant string) (price float64, available bool, err error)
}

// DeliverySettler runs the payment-success path for cash-on-delivery orders.
// Implemented by the payment service; injected to avoid a module cycle.
type DeliverySettler interface {
	CollectOnDelivery(ctx context.Context, orderID uuid.UUID) error
}

// Service defines order management business logic.
type Service interface {
	// PlaceOrder validates the cart, captures unit prices and persists the
	// order atomically in PLACED/PENDING state.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error)

	// GetOrder retrieves a full order by UUID.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListCustomerOrders returns all orders placed by a customer.
	ListCustomerOrders(ctx context.Context, customerID string) ([]*Order, error)

	// UpdateStatus advances an order through the status state machine. A
	// DELIVERED transition on a payment-pending order collects the payment
	// (cash on delivery) as a side effect.
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error)
}

type service struct {
	repo    Repository
	pricer  Pricer
	settler DeliverySettler
	log     *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, pricer Pricer, settler DeliverySettler, log *zap.Logger) Service {
	return &service{repo: repo, pricer: pricer, settler: settler, log: log}
}

func (s *service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order must contain at least one item")
	}

	method := Method(strings.ToUpper(req.PaymentMethod))
	if method == "" {
		method = MethodOnline
	}
	if method != MethodOnline && method != MethodCashOnDelivery {
		return nil, fmt.Errorf("unknown payment method: %s", req.PaymentMethod)
	}

	orderID := uuid.New()
	var items []*LineItem
	var subtotal float64

	for _, ci := range req.Items {
		if ci.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be > 0 for product %s", ci.ProductID)
		}
		pid, err := uuid.Parse(ci.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product_id: %w", err)
		}
		price, available, err := s.pricer.GetUnitPrice(ctx, pid, ci.Variant)
		if err != nil {
			return nil, fmt.Errorf("product %s not found", ci.ProductID)
		}
		if !available {
			return nil, fmt.Errorf("product %s (%s) is currently unavailable", ci.ProductID, ci.Variant)
		}

		lineTotal := price * float64(ci.Quantity)
		subtotal += lineTotal
		items = append(items, &LineItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: pid,
			Variant:   ci.Variant,
			Quantity:  ci.Quantity,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
	}

	discount := req.Discount
	if discount < 0 {
		discount = 0
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	o := &Order{
		ID:              orderID,
		OrderNumber:     generateOrderNumber(),
		Status:          StatusPlaced,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		CouponCode:      strings.ToUpper(req.CouponCode),
		GatewayOrderRef: req.GatewayOrderRef,
		Subtotal:        round2(subtotal),
		Discount:        round2(discount),
		Total:           round2(total),
		Currency:        "INR",
		Items:           items,
	}

	if req.CustomerID != "" {
		uid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		o.CustomerID = &uid
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}
	return s.repo.GetOrderByID(ctx, o.ID)
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	return s.repo.GetOrderByID(ctx, uid)
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID string) ([]*Order, error) {
	uid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}
	return s.repo.ListOrdersByCustomer(ctx, uid)
}

func (s *service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	o, err := s.repo.GetOrderByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	next := Status(strings.ToUpper(req.Status))
	if !CanTransition(o.Status, next) {
		return nil, NewTransitionError(o.Status, next)
	}
	actor := req.Actor
	if actor == "" {
		actor = "system"
	}

	applied, err := s.repo.UpdateStatus(ctx, uid, o.Status, next, actor, req.Note)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent update moved the order first; report against the fresh state.
		fresh, err := s.repo.GetOrderByID(ctx, uid)
		if err != nil {
			return nil, err
		}
		return nil, NewTransitionError(fresh.Status, next)
	}

	// Cash on delivery: delivery of a payment-pending order collects the
	// payment, which in turn settles inventory and enables invoicing. A
	// settlement error never undoes the delivered transition.
	if next == StatusDelivered && o.PaymentStatus == PaymentPending && s.settler != nil {
		if err := s.settler.CollectOnDelivery(ctx, uid); err != nil {
			s.log.Error("cash-on-delivery settlement failed",
				zap.String("order_id", uid.String()), zap.Error(err))
		}
	}

	return s.repo.GetOrderByID(ctx, uid)
}

// generateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXX
func generateOrderNumber() string {
	date := time.Now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
