package services

import (
	"math"
	"storefront/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionDiscountMode selects how the subscriber discount is sized.
type SubscriptionDiscountMode string

const (
	// SubscriptionDiscountFromCost uses the subscription cost, falling back to
	// the flat amount when the cost is not positive.
	SubscriptionDiscountFromCost SubscriptionDiscountMode = "subscription_cost"
	// SubscriptionDiscountFlat always uses the flat amount.
	SubscriptionDiscountFlat SubscriptionDiscountMode = "flat"
)

// PricingPolicy holds the configurable pricing constants.
type PricingPolicy struct {
	ShippingFee                  float64
	CODSurcharge                 float64
	SubscriptionFallbackDiscount float64
	SubscriptionDiscountMode     SubscriptionDiscountMode
}

// DefaultPricingPolicy returns the standard store policy.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		ShippingFee:                  100,
		CODSurcharge:                 50,
		SubscriptionFallbackDiscount: 250,
		SubscriptionDiscountMode:     SubscriptionDiscountFromCost,
	}
}

// PricingLine is one cart line as seen by the pricing engine.
type PricingLine struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

// PricingInput is everything a price depends on. At is the instant used to
// decide whether the subscription is still active.
type PricingInput struct {
	Lines         []PricingLine
	Subscription  models.Subscription
	Coupon        *models.Coupon
	PaymentMethod models.PaymentMethod
	At            time.Time
}

// PriceBreakdown is the itemised result of a price calculation.
type PriceBreakdown struct {
	Subtotal             float64 `json:"subtotal"`
	SubscriptionDiscount float64 `json:"subscriptionDiscount"`
	CouponDiscount       float64 `json:"couponDiscount"`
	Shipping             float64 `json:"shipping"`
	CODSurcharge         float64 `json:"codCharge"`
	Total                float64 `json:"total"`
}

// PricingEngine computes order totals. It has no side effects.
type PricingEngine struct {
	policy PricingPolicy
}

// NewPricingEngine creates a new PricingEngine.
func NewPricingEngine(policy PricingPolicy) *PricingEngine {
	return &PricingEngine{policy: policy}
}

// Subtotal returns Σ unit price × quantity after validating every line.
func (e *PricingEngine) Subtotal(lines []PricingLine) (float64, error) {
	subtotal, err := e.subtotal(lines)
	if err != nil {
		return 0, err
	}
	return subtotal.InexactFloat64(), nil
}

func (e *PricingEngine) subtotal(lines []PricingLine) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, ErrEmptyCart
	}
	subtotal := decimal.Zero
	for i, line := range lines {
		if line.Quantity < 1 {
			return decimal.Zero, validationError("line %d: quantity must be at least 1", i+1)
		}
		if math.IsNaN(line.UnitPrice) || math.IsInf(line.UnitPrice, 0) || line.UnitPrice < 0 {
			return decimal.Zero, validationError("line %d: unit price must be a non-negative number", i+1)
		}
		subtotal = subtotal.Add(decimal.NewFromFloat(line.UnitPrice).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal, nil
}

// Calculate prices a cart:
//
//	total = max(0, subtotal − subscriptionDiscount − couponDiscount + shipping + codSurcharge)
func (e *PricingEngine) Calculate(in PricingInput) (PriceBreakdown, error) {
	subtotal, err := e.subtotal(in.Lines)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return PriceBreakdown{}, ErrInvalidPaymentMethod
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = decimal.NewFromFloat(e.policy.ShippingFee)
	}

	subDiscount := e.subscriptionDiscount(in.Subscription, in.At)
	if subDiscount.GreaterThan(subtotal) {
		subDiscount = subtotal
	}

	couponDiscount := decimal.Zero
	if in.Coupon != nil {
		couponDiscount = subtotal.Mul(decimal.NewFromFloat(in.Coupon.Discount)).Div(decimal.NewFromInt(100)).Round(0)
	}

	cod := decimal.Zero
	if in.PaymentMethod == models.PaymentMethodCOD {
		cod = decimal.NewFromFloat(e.policy.CODSurcharge)
	}

	total := subtotal.Sub(subDiscount).Sub(couponDiscount).Add(shipping).Add(cod)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return PriceBreakdown{
		Subtotal:             subtotal.InexactFloat64(),
		SubscriptionDiscount: subDiscount.InexactFloat64(),
		CouponDiscount:       couponDiscount.InexactFloat64(),
		Shipping:             shipping.InexactFloat64(),
		CODSurcharge:         cod.InexactFloat64(),
		Total:                total.InexactFloat64(),
	}, nil
}

func (e *PricingEngine) subscriptionDiscount(sub models.Subscription, at time.Time) decimal.Decimal {
	if !sub.Active(at) {
		return decimal.Zero
	}
	if e.policy.SubscriptionDiscountMode == SubscriptionDiscountFromCost && sub.SubscriptionCost > 0 {
		return decimal.NewFromFloat(sub.SubscriptionCost)
	}
	return decimal.NewFromFloat(e.policy.SubscriptionFallbackDiscount)
}
