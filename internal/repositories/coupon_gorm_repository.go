package repositories

import (
	"context"
	"errors"
	"fmt"
	"storefront/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{
		db: db,
	}
}

// Create stores a new coupon. Codes are unique.
func (r *GORMCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("coupon %s: %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its code.
func (r *GORMCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return r.first(ctx, "code = ?", code, "code "+code)
}

// GetByID retrieves a coupon by its ID.
func (r *GORMCouponRepository) GetByID(ctx context.Context, id string) (*models.Coupon, error) {
	return r.first(ctx, "id = ?", id, "ID "+id)
}

func (r *GORMCouponRepository) first(ctx context.Context, query string, arg interface{}, label string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon with %s: %w", label, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon by %s: %w", label, err)
	}
	return &coupon, nil
}

// List returns every coupon, newest first.
func (r *GORMCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// Consume redeems one use of the coupon with a single conditional UPDATE.
func (r *GORMCouponRepository) Consume(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND used_count < usage_limit", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to consume coupon %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("coupon %s: %w", id, ErrLimitReached)
}

// Release gives one use back. It never drops used_count below zero.
func (r *GORMCouponRepository) Release(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to release coupon %s: %w", id, res.Error)
	}
	return nil
}

// Sweep marks expired and exhausted active coupons.
func (r *GORMCouponRepository) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var swept int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Coupon{}).
			Where("status = ? AND valid_until < ?", models.CouponStatusActive, now).
			Update("status", models.CouponStatusExpired)
		if expired.Error != nil {
			return expired.Error
		}
		used := tx.Model(&models.Coupon{}).
			Where("status = ? AND used_count >= usage_limit", models.CouponStatusActive).
			Update("status", models.CouponStatusUsed)
		if used.Error != nil {
			return used.Error
		}
		swept = expired.RowsAffected + used.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep coupons: %w", err)
	}
	return swept, nil
}
