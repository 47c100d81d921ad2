package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CallbackSignature computes the hex HMAC-SHA256 digest the gateway attaches
// to redirect-back confirmations: HMAC(secret, "<orderRef>|<paymentRef>").
func CallbackSignature(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature checks a redirect-back signature. hmac.Equal keeps
// the comparison constant-time.
func VerifyCallbackSignature(secret, orderRef, paymentRef, signature string) bool {
	expected := CallbackSignature(secret, orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSignature computes the hex HMAC-SHA256 digest over a raw webhook
// body with the webhook secret.
func WebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a webhook body signature in constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	expected := WebhookSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
