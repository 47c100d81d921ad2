package sequence

import (
	"errors"
	"time"
)

// Domain is a numbering domain with its own gapless counter.
type Domain string

const (
	DomainInvoice    Domain = "invoice"
	DomainCreditNote Domain = "credit_note"
)

// prefixes maps a domain to the identifier prefix used in formatted numbers.
var prefixes = map[Domain]string{
	DomainInvoice:    "INV",
	DomainCreditNote: "CRN",
}

// ErrUnknownDomain is returned for a domain without a registered counter.
var ErrUnknownDomain = errors.New("unknown numbering domain")

// Counter is the persisted state of one numbering domain. Count strictly
// increases by 1 per allocation and never resets; Year records the year of
// the first allocation and is advisory metadata only.
type Counter struct {
	Domain    Domain    `json:"domain"`
	Year      int       `json:"year"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
