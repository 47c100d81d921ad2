package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// Handler exposes invoice and credit-note HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts the billing endpoints on the shared /api/v1/orders
// subrouter owned by the order module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/invoice", h.issueInvoice)
	r.Get("/{id}/invoice-eligibility", h.eligibility)
	r.Post("/{id}/credit-notes", h.createCreditNote)
}

func (h *Handler) issueInvoice(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	number, err := h.service.IssueInvoice(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrNotEligible):
			respond(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	respond(w, http.StatusOK, InvoiceResponse{OrderID: orderID.String(), InvoiceNumber: number})
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	eligible, err := h.service.InvoiceEligibility(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, EligibilityResponse{OrderID: orderID.String(), Eligible: eligible})
}

func (h *Handler) createCreditNote(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	var req CreditNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	refund, err := h.service.CreateCreditNote(r.Context(), orderID, req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrOrderNotPaid), errors.Is(err, order.ErrRefundExceedsTotal):
			respond(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			code := http.StatusInternalServerError
			if err.Error() == "amount must be greater than 0" {
				code = http.StatusBadRequest
			}
			respond(w, code, map[string]string{"error": err.Error()})
		}
		return
	}
	respond(w, http.StatusCreated, refund)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
