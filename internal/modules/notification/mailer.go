// Package notification sends customer-facing messages. Sending is best
// effort; a resend of a confirmation is harmless.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// Mailer sends transactional email.
type Mailer interface {
	// SendOrderConfirmation tells the customer their payment settled.
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// smtpMailer is the production adapter. The send is stubbed; wire the SMTP
// relay (or a provider API) here when credentials are provisioned.
type smtpMailer struct {
	host string
	port string
	from string
	log  *zap.Logger
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(host, port, from string, log *zap.Logger) Mailer {
	return &smtpMailer{host: host, port: port, from: from, log: log}
}

func (m *smtpMailer) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	if m.host == "" {
		return fmt.Errorf("smtp relay not configured")
	}

	// ── PRODUCTION INTEGRATION POINT ──────────────────────────────────────────
	// Render the confirmation template and deliver via net/smtp or the
	// provider's HTTP API. Subject: "Order {{order_number}} confirmed".
	// ──────────────────────────────────────────────────────────────────────────

	m.log.Info("order confirmation queued",
		zap.String("order_number", o.OrderNumber),
		zap.String("order_id", o.ID.String()))
	return nil
}
