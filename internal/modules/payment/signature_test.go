package payment

import "testing"

func TestVerifyCallbackSignature(t *testing.T) {
	secret := "test-secret"
	sig := CallbackSignature(secret, "gw_order_1", "pay_1")

	if !VerifyCallbackSignature(secret, "gw_order_1", "pay_1", sig) {
		t.Error("valid signature rejected")
	}
	if VerifyCallbackSignature(secret, "gw_order_1", "pay_2", sig) {
		t.Error("signature accepted for a different payment ref")
	}
	if VerifyCallbackSignature("other-secret", "gw_order_1", "pay_1", sig) {
		t.Error("signature accepted under the wrong secret")
	}
	if VerifyCallbackSignature(secret, "gw_order_1", "pay_1", "") {
		t.Error("empty signature accepted")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"event":"payment.captured"}`)
	sig := WebhookSignature(secret, body)

	if !VerifyWebhookSignature(secret, body, sig) {
		t.Error("valid signature rejected")
	}
	if VerifyWebhookSignature(secret, []byte(`{"event":"payment.failed"}`), sig) {
		t.Error("signature accepted for a tampered body")
	}
	if VerifyWebhookSignature("other", body, sig) {
		t.Error("signature accepted under the wrong secret")
	}
}
