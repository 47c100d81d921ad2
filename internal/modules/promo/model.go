package promo

import (
	"time"

	"github.com/google/uuid"
)

// Redemption records one coupon applied to one order. The (code, order) pair
// is unique, which is what makes usage accounting safe to re-run.
type Redemption struct {
	CouponCode string    `json:"coupon_code"`
	OrderID    uuid.UUID `json:"order_id"`
	CreatedAt  time.Time `json:"created_at"`
}
