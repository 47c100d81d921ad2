package promo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a promo repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) RecordRedemption(ctx context.Context, code string, orderID uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO coupon_redemptions (coupon_code, order_id)
		VALUES ($1, $2)
		ON CONFLICT (coupon_code, order_id) DO NOTHING`,
		code, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}

	// Counter only moves when the redemption row is new, so dispatch retries
	// cannot double-count.
	_, err = tx.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE code = $1`, code)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}
