// Package analytics maintains best-effort sales counters in Redis. The cache
// feeds dashboards only; it is never consulted for settlement decisions and
// a failed increment is just logged.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

const retention = 90 * 24 * time.Hour

// Recorder increments daily sales aggregates.
type Recorder struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRecorder creates a recorder on an existing Redis client.
func NewRecorder(rdb *redis.Client, log *zap.Logger) *Recorder {
	return &Recorder{rdb: rdb, log: log}
}

// RecordSettlement bumps the day's order count and revenue. Re-running for
// the same order overcounts the cache, which is acceptable for a best-effort
// dashboard aggregate; the dispatcher only calls it on first settlement.
func (r *Recorder) RecordSettlement(ctx context.Context, o *order.Order) error {
	key := fmt.Sprintf("analytics:daily:%s", time.Now().UTC().Format("2006-01-02"))

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "orders_settled", 1)
	pipe.HIncrByFloat(ctx, key, "revenue", o.Total)
	pipe.Expire(ctx, key, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("analytics increment: %w", err)
	}
	return nil
}
