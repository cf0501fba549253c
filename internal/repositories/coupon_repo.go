package repositories

import (
	"context"
	"storefront/internal/models"
	"time"
)

// CouponRepository defines the interface for coupon data operations.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetByID(ctx context.Context, id string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	// Consume atomically increments used_count while it is below usage_limit.
	// It returns ErrLimitReached when no redemption is left.
	Consume(ctx context.Context, id string) error
	// Release gives back one redemption taken by Consume.
	Release(ctx context.Context, id string) error
	// Sweep flags active coupons that are past their window or exhausted.
	Sweep(ctx context.Context, now time.Time) (int64, error)
}
