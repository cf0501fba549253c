package repositories

import (
	"context"
	"fmt"
	"sort"
	"storefront/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockCouponRepository is an in-memory implementation of CouponRepository.
type MockCouponRepository struct {
	coupons map[string]models.Coupon
	mu      sync.RWMutex
}

// NewMockCouponRepository creates a new instance of MockCouponRepository.
func NewMockCouponRepository() *MockCouponRepository {
	return &MockCouponRepository{
		coupons: make(map[string]models.Coupon),
	}
}

// Create adds a new coupon, rejecting duplicate codes.
func (r *MockCouponRepository) Create(_ context.Context, coupon *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.coupons {
		if existing.Code == coupon.Code {
			return fmt.Errorf("coupon %s: %w", coupon.Code, ErrDuplicate)
		}
	}
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	now := time.Now()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now
	r.coupons[coupon.ID] = *coupon
	return nil
}

// GetByCode returns a coupon by its code.
func (r *MockCouponRepository) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, coupon := range r.coupons {
		if coupon.Code == code {
			c := coupon
			return &c, nil
		}
	}
	return nil, fmt.Errorf("coupon with code %s: %w", code, ErrNotFound)
}

// GetByID returns a coupon by its ID.
func (r *MockCouponRepository) GetByID(_ context.Context, id string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coupon, ok := r.coupons[id]
	if !ok {
		return nil, fmt.Errorf("coupon with ID %s: %w", id, ErrNotFound)
	}
	return &coupon, nil
}

// List returns all coupons, newest first.
func (r *MockCouponRepository) List(_ context.Context) ([]models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	couponList := make([]models.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		couponList = append(couponList, c)
	}
	sort.Slice(couponList, func(i, j int) bool { return couponList[i].CreatedAt.After(couponList[j].CreatedAt) })
	return couponList, nil
}

// Consume redeems one use of the coupon under the write lock.
func (r *MockCouponRepository) Consume(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[id]
	if !ok {
		return fmt.Errorf("coupon with ID %s: %w", id, ErrNotFound)
	}
	if coupon.Exhausted() {
		return fmt.Errorf("coupon %s: %w", id, ErrLimitReached)
	}
	coupon.UsedCount++
	r.coupons[id] = coupon
	return nil
}

// Release gives one use back.
func (r *MockCouponRepository) Release(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[id]
	if ok && coupon.UsedCount > 0 {
		coupon.UsedCount--
		r.coupons[id] = coupon
	}
	return nil
}

// Sweep marks expired and exhausted active coupons.
func (r *MockCouponRepository) Sweep(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept int64
	for id, coupon := range r.coupons {
		if coupon.Status != models.CouponStatusActive {
			continue
		}
		switch {
		case coupon.ValidUntil.Before(now):
			coupon.Status = models.CouponStatusExpired
		case coupon.Exhausted():
			coupon.Status = models.CouponStatusUsed
		default:
			continue
		}
		coupon.UpdatedAt = now
		r.coupons[id] = coupon
		swept++
	}
	return swept, nil
}
