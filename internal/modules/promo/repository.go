package promo

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists coupon redemptions.
type Repository interface {
	// RecordRedemption inserts the (code, order) redemption and bumps the
	// coupon usage counter, once. Re-running for the same pair is a no-op;
	// the bool reports whether a new redemption was recorded.
	RecordRedemption(ctx context.Context, code string, orderID uuid.UUID) (bool, error)
}
