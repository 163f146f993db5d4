package model

import (
	"time"

	"subscription-commerce/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription is the durable billing state for a user. At most one
// subscription is active per user; renewals update the existing row and
// reactivation reuses an inactive row instead of inserting a duplicate.
type Subscription struct {
	ID            string // UUID
	UserID        string
	PlanID        string
	Status        SubscriptionStatus
	StartDate     time.Time
	EndDate       time.Time
	GatewayRef    string // gateway-side subscription/preapproval correlation id
	OverridePrice *float64
	CouponID      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSubscription creates an active subscription for one billing period
// of the given plan starting now.
func NewSubscription(id, userID string, plan *Plan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    SubscriptionStatusActive,
		StartDate: now,
		EndDate:   plan.BillingInterval.AddTo(now),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Renew moves the subscription onto plan for a fresh billing period.
// Used both for renewals of an active row and reactivation of an
// inactive one.
func (s *Subscription) Renew(plan *Plan, now time.Time) {
	s.PlanID = plan.ID
	s.Status = SubscriptionStatusActive
	s.StartDate = now
	s.EndDate = plan.BillingInterval.AddTo(now)
	s.UpdatedAt = now
}
