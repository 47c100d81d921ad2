package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/metrics"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Webhook-Signature"

// Handler exposes the payment verification HTTP endpoints.
type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/payments/callback", h.callback)
	// No auth middleware: the body signature is the authentication.
	r.Post("/api/v1/webhooks/payments", h.webhook)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	o, err := h.service.ConfirmCallback(r.Context(), req)
	if err != nil {
		// Signature and replay failures get the same opaque response so the
		// caller cannot tell which check tripped.
		if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrReplayDetected) {
			respond(w, http.StatusUnauthorized, map[string]string{"error": ErrAuthenticationFailed.Error()})
			return
		}
		if errors.Is(err, ErrOrderMismatch) || errors.Is(err, ErrPaymentNotPending) {
			respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		respond(w, http.StatusInternalServerError, map[string]string{"error": "payment confirmation failed"})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"status":         "verified",
		"order_id":       o.ID,
		"payment_status": o.PaymentStatus,
	})
}

// webhook always acks with 200 so the gateway never retries forever; every
// internal failure is logged and counted instead. Idempotency lives in the
// service, not in retry suppression.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("webhook body read failed", zap.Error(err))
		metrics.WebhookFailures.Inc()
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		h.log.Error("webhook processing failed", zap.Error(err))
		metrics.WebhookFailures.Inc()
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
