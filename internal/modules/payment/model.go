package payment

// Gateway event names delivered on the webhook channel.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// CallbackRequest is the client redirect-back confirmation. The signature is
// HMAC-SHA256 over "<gateway_order_ref>|<gateway_payment_ref>" with the
// shared checkout secret.
type CallbackRequest struct {
	OrderID           string `json:"order_id"`
	GatewayOrderRef   string `json:"gateway_order_ref"`
	GatewayPaymentRef string `json:"gateway_payment_ref"`
	Signature         string `json:"signature"`
}

// WebhookEvent is the asynchronous gateway notification. The raw body is
// signed with the (separate) webhook secret; the signature travels in a
// header, so verification happens against the bytes as received.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payment WebhookPayment `json:"payment"`
}

// WebhookPayment is the payment entity inside a webhook event. Notes carry
// the internal order id the gateway echoes back from checkout.
type WebhookPayment struct {
	OrderRef   string            `json:"order_ref"`
	PaymentRef string            `json:"payment_ref"`
	Amount     float64           `json:"amount,omitempty"`
	Currency   string            `json:"currency,omitempty"`
	Reason     string            `json:"reason,omitempty"` // failure description
	Notes      map[string]string `json:"notes,omitempty"`
}
