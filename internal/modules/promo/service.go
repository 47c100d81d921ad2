package promo

import (
	"context"

	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
)

// Service accounts coupon/combo usage after settlement.
type Service interface {
	// RecordUsage books the order's coupon redemption. Safe to call for
	// orders without a coupon and safe to re-run.
	RecordUsage(ctx context.Context, o *order.Order) error
}

type service struct {
	repo Repository
	log  *zap.Logger
}

// NewService creates a new promo service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) RecordUsage(ctx context.Context, o *order.Order) error {
	if o.CouponCode == "" {
		return nil
	}
	recorded, err := s.repo.RecordRedemption(ctx, o.CouponCode, o.ID)
	if err != nil {
		return err
	}
	if recorded {
		s.log.Info("coupon redemption recorded",
			zap.String("coupon", o.CouponCode),
			zap.String("order_id", o.ID.String()))
	}
	return nil
}
