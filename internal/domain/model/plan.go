package model

import (
	"time"

	"subscription-commerce/internal/domain"
)

// BillingInterval is the catalog's billing cadence. Values are the
// Portuguese tokens the gateway and legacy plan ids carry.
type BillingInterval string

const (
	IntervalMonthly   BillingInterval = "mensal"
	IntervalQuarterly BillingInterval = "trimestral"
	IntervalYearly    BillingInterval = "anual"
)

// AddTo returns the subscription end date for a period starting at t.
// Calendar-aware: Jan 31 + mensal lands on the calendar month boundary,
// not start+30d. Unknown intervals bill as monthly.
func (i BillingInterval) AddTo(t time.Time) time.Time {
	switch i {
	case IntervalQuarterly:
		return t.AddDate(0, 3, 0)
	case IntervalYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// ParseInterval maps a free-form hint to a known interval. Empty result
// means the hint was absent or unrecognized.
func ParseInterval(s string) BillingInterval {
	switch BillingInterval(s) {
	case IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return BillingInterval(s)
	}
	return ""
}

// Plan is a catalog offering. Read-only from the reconciliation engine's
// perspective; admin endpoints mutate it.
type Plan struct {
	ID              string // UUID
	Name            string
	Price           float64
	BillingInterval BillingInterval
	Active          bool
	Description     string
	CreatedAt       time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, price float64, interval BillingInterval, description string) (*Plan, error) {
	if id == "" || name == "" || price <= 0 || ParseInterval(string(interval)) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:              id,
		Name:            name,
		Price:           price,
		BillingInterval: interval,
		Active:          true,
		Description:     description,
		CreatedAt:       time.Now(),
	}, nil
}
