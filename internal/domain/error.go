package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Payment pipeline errors
	ErrAuth                 = errors.New("gateway authentication failed")
	ErrMissingUserReference = errors.New("payment carries no user reference")
	ErrNoActivePlans        = errors.New("no active plans available")
	ErrDuplicatePayment     = errors.New("payment already recorded")

	// Coupon errors
	ErrCouponInactive  = errors.New("coupon is not active")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	ErrLockNotAcquired = errors.New("could not acquire lock")
)
