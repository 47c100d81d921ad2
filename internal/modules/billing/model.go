package billing

// CreditNoteRequest is the payload for issuing a credit note against an order.
type CreditNoteRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

// InvoiceResponse is returned after invoice issuance.
type InvoiceResponse struct {
	OrderID       string `json:"order_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// EligibilityResponse answers the invoice-eligibility query.
type EligibilityResponse struct {
	OrderID  string `json:"order_id"`
	Eligible bool   `json:"eligible"`
}
