package models

import "time"

// CouponType controls whether a coupon is advertised at checkout.
type CouponType string

const (
	CouponTypePublic   CouponType = "public"
	CouponTypePersonal CouponType = "personal"
)

// CouponStatus is the admin-visible lifecycle flag of a coupon.
type CouponStatus string

const (
	CouponStatusActive  CouponStatus = "active"
	CouponStatusExpired CouponStatus = "expired"
	CouponStatusUsed    CouponStatus = "used"
)

// Coupon is a percentage discount with a validity window and a usage limit.
type Coupon struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code        string       `json:"code" gorm:"uniqueIndex;type:varchar(64);not null"`
	Type        CouponType   `json:"type" gorm:"type:varchar(16);default:public"`
	Discount    float64      `json:"discount"` // percent
	MinPurchase float64      `json:"minPurchase"`
	ValidFrom   time.Time    `json:"validFrom"`
	ValidUntil  time.Time    `json:"validUntil"`
	UsageLimit  int          `json:"usageLimit" gorm:"not null;default:1"`
	UsedCount   int          `json:"usedCount" gorm:"not null;default:0"`
	Status      CouponStatus `json:"status" gorm:"type:varchar(16);default:active"`
	Description string       `json:"description"`
	CreatedBy   string       `json:"createdBy" gorm:"type:varchar(36)"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// InWindow reports whether at falls inside [ValidFrom, ValidUntil].
func (c *Coupon) InWindow(at time.Time) bool {
	return !at.Before(c.ValidFrom) && !at.After(c.ValidUntil)
}

// Exhausted reports whether every allowed redemption has been used.
func (c *Coupon) Exhausted() bool {
	return c.UsedCount >= c.UsageLimit
}
