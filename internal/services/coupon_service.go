package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CouponService validates, redeems and administers coupons.
type CouponService struct {
	couponRepo repositories.CouponRepository
	now        func() time.Time
}

// NewCouponService creates a new CouponService. now defaults to time.Now.
func NewCouponService(couponRepo repositories.CouponRepository, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{
		couponRepo: couponRepo,
		now:        now,
	}
}

// Validate looks the coupon up by code and checks, in order, that it is
// active, inside its validity window, not exhausted and that cartSubtotal
// reaches the minimum purchase. The first failing check wins.
func (s *CouponService) Validate(ctx context.Context, code string, cartSubtotal float64, at time.Time) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to load coupon %s: %w", code, err)
	}
	if err := checkRedeemable(coupon, cartSubtotal, at); err != nil {
		return nil, err
	}
	return coupon, nil
}

func checkRedeemable(coupon *models.Coupon, cartSubtotal float64, at time.Time) error {
	switch {
	case coupon.Status != models.CouponStatusActive:
		return ErrCouponInactive
	case !coupon.InWindow(at):
		return ErrCouponExpired
	case coupon.Exhausted():
		return ErrCouponLimitReached
	case cartSubtotal < coupon.MinPurchase:
		return newError(ErrValidation, ErrCouponBelowMinimum.Code,
			fmt.Sprintf("Minimum purchase of %.2f required for this coupon", coupon.MinPurchase))
	}
	return nil
}

// Consume redeems one use of the coupon. Concurrent calls never take more
// uses than the coupon's limit.
func (s *CouponService) Consume(ctx context.Context, couponID string) error {
	if err := s.couponRepo.Consume(ctx, couponID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrLimitReached):
			return ErrCouponLimitReached
		case errors.Is(err, repositories.ErrNotFound):
			return ErrCouponNotFound
		}
		return fmt.Errorf("failed to consume coupon %s: %w", couponID, err)
	}
	return nil
}

// releaseTimeout bounds the compensating release after a failed checkout.
const releaseTimeout = 5 * time.Second

// Release gives back a use taken by Consume when the order it was taken for
// could not be stored. It still runs when ctx is already cancelled, since the
// order insert usually fails for exactly that reason.
func (s *CouponService) Release(ctx context.Context, couponID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.couponRepo.Release(ctx, couponID); err != nil {
		log.Error().Err(err).Str("coupon_id", couponID).Msg("Failed to release coupon usage")
	}
}

// CouponQuote is what the checkout page shows after applying a coupon.
type CouponQuote struct {
	Code           string  `json:"code"`
	Discount       float64 `json:"discount"`
	DiscountAmount float64 `json:"discountAmount"`
}

// Apply validates a coupon against a cart total without redeeming it.
func (s *CouponService) Apply(ctx context.Context, code string, cartTotal float64) (CouponQuote, error) {
	coupon, err := s.Validate(ctx, code, cartTotal, s.now())
	if err != nil {
		return CouponQuote{}, err
	}
	amount := decimal.NewFromFloat(cartTotal).Mul(decimal.NewFromFloat(coupon.Discount)).Div(decimal.NewFromInt(100)).Round(0)
	return CouponQuote{
		Code:           coupon.Code,
		Discount:       coupon.Discount,
		DiscountAmount: amount.InexactFloat64(),
	}, nil
}

// CreateCouponCommand carries the admin input for a new coupon.
type CreateCouponCommand struct {
	Code        string            `json:"code" validate:"required,min=3,max=64"`
	Type        models.CouponType `json:"type" validate:"omitempty,oneof=public personal"`
	Discount    float64           `json:"discount" validate:"gt=0,lte=100"`
	MinPurchase float64           `json:"minPurchase" validate:"gte=0"`
	ValidFrom   time.Time         `json:"validFrom" validate:"required"`
	ValidUntil  time.Time         `json:"validUntil" validate:"required"`
	UsageLimit  int               `json:"usageLimit" validate:"gte=1"`
	Description string            `json:"description" validate:"max=500"`
	CreatedBy   string            `json:"-"`
}

// Create stores a new active coupon.
func (s *CouponService) Create(ctx context.Context, cmd CreateCouponCommand) (*models.Coupon, error) {
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return nil, validationError("coupon code is required")
	}
	if cmd.Discount <= 0 || cmd.Discount > 100 {
		return nil, validationError("discount must be a percentage between 0 and 100")
	}
	if cmd.UsageLimit < 1 {
		return nil, validationError("usage limit must be at least 1")
	}
	if cmd.MinPurchase < 0 {
		return nil, validationError("minimum purchase cannot be negative")
	}
	if cmd.ValidUntil.Before(cmd.ValidFrom) {
		return nil, validationError("validUntil must not be before validFrom")
	}
	couponType := cmd.Type
	if couponType == "" {
		couponType = models.CouponTypePublic
	}

	coupon := &models.Coupon{
		Code:        code,
		Type:        couponType,
		Discount:    cmd.Discount,
		MinPurchase: cmd.MinPurchase,
		ValidFrom:   cmd.ValidFrom,
		ValidUntil:  cmd.ValidUntil,
		UsageLimit:  cmd.UsageLimit,
		Status:      models.CouponStatusActive,
		Description: cmd.Description,
		CreatedBy:   cmd.CreatedBy,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateCoupon
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	log.Info().Str("code", coupon.Code).Float64("discount", coupon.Discount).Int("usage_limit", coupon.UsageLimit).Msg("Coupon created")
	return coupon, nil
}

// List returns every coupon for the admin console.
func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// ListPublic returns the public coupons a customer could redeem right now.
func (s *CouponService) ListPublic(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	public := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.Type == models.CouponTypePublic && c.Status == models.CouponStatusActive && c.InWindow(now) && !c.Exhausted() {
			public = append(public, c)
		}
	}
	return public, nil
}

// Sweep flags expired and exhausted coupons so the admin listing reflects them.
func (s *CouponService) Sweep(ctx context.Context) (int64, error) {
	swept, err := s.couponRepo.Sweep(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep coupons: %w", err)
	}
	log.Info().Int64("swept", swept).Msg("Coupon sweep finished")
	return swept, nil
}
