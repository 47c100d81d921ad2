package order

import (
	"errors"
	"fmt"
)

// Status represents the fulfilment lifecycle state of an order.
type Status string

const (
	StatusPlaced     Status = "PLACED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// validTransitions defines the allowed status state machine. DELIVERED and
// CANCELLED are terminal.
var validTransitions = map[Status][]Status{
	StatusPlaced:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// AllowedNext returns the statuses an order in the given state may move to.
// The returned slice is empty (never nil) for terminal states.
func AllowedNext(current Status) []Status {
	allowed, ok := validTransitions[current]
	if !ok {
		return []Status{}
	}
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether current → next is a legal move.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionError is returned for an illegal status transition. It carries
// the attempted move and the allowed next states so callers can act on it.
type TransitionError struct {
	Current   Status   `json:"current"`
	Attempted Status   `json:"attempted"`
	Allowed   []Status `json:"allowed"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s (allowed: %v)", e.Current, e.Attempted, e.Allowed)
}

// NewTransitionError builds a TransitionError for the given move.
func NewTransitionError(current, attempted Status) *TransitionError {
	return &TransitionError{Current: current, Attempted: attempted, Allowed: AllowedNext(current)}
}

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrRefundExceedsTotal is returned when a credit note would push the sum of
// refunds past the order total.
var ErrRefundExceedsTotal = errors.New("refund amount exceeds remaining order total")
