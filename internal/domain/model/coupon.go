package model

import (
	"time"

	"subscription-commerce/internal/domain"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type Coupon struct {
	ID            string // UUID
	Code          string
	DiscountType  DiscountType
	DiscountValue float64
	UsageLimit    int
	UsageCount    int
	ExpiresAt     *time.Time
	Active        bool
	CreatedAt     time.Time
}

// CouponUsage is recorded once per (coupon, user) pair.
type CouponUsage struct {
	ID       string
	CouponID string
	UserID   string
	UsedAt   time.Time
}

// Validate reports whether the coupon can still be redeemed at now.
func (c *Coupon) Validate(now time.Time) error {
	if !c.Active {
		return domain.ErrCouponInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return domain.ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return domain.ErrCouponExhausted
	}
	return nil
}

// Apply returns the price after discount, floored at zero.
func (c *Coupon) Apply(price float64) float64 {
	var out float64
	switch c.DiscountType {
	case DiscountPercent:
		out = price * (1 - c.DiscountValue/100)
	case DiscountFixed:
		out = price - c.DiscountValue
	default:
		out = price
	}
	if out < 0 {
		return 0
	}
	return out
}
