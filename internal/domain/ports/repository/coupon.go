package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

type CouponRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
	// RecordUsage inserts the usage row and increments the coupon's
	// counter. Returns ErrAlreadyExists when this user already redeemed
	// this coupon.
	RecordUsage(ctx context.Context, tx Tx, couponID, userID string) error
}
