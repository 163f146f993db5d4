package model

import "time"

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"    // checkout preference created; awaiting gateway outcome
	AttemptStatusApproved  AttemptStatus = "approved"   // gateway reported an approved charge
	AttemptStatusRejected  AttemptStatus = "rejected"   // charge declined
	AttemptStatusCancelled AttemptStatus = "cancelled"  // superseded by a sibling approval or user abort
	AttemptStatusInProcess AttemptStatus = "in_process" // gateway still reviewing
	AttemptStatusRefunded  AttemptStatus = "refunded"
)

// PaymentAttempt records a user's intent to pay for a plan before the
// gateway confirms anything. The plan fields are a snapshot taken at
// checkout time so reconciliation survives later catalog edits.
// Attempts are never hard-deleted.
type PaymentAttempt struct {
	ID           string // UUID
	UserID       string
	PreferenceID string // gateway checkout session id
	PlanID       string
	PlanName     string
	PlanPrice    float64
	PlanInterval BillingInterval
	Status       AttemptStatus
	CouponID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MapGatewayStatus folds the gateway's payment status vocabulary onto
// the attempt lifecycle. Unknown statuses pass through verbatim so the
// audit trail keeps what the gateway actually said.
func MapGatewayStatus(s string) AttemptStatus {
	switch s {
	case "approved":
		return AttemptStatusApproved
	case "rejected":
		return AttemptStatusRejected
	case "cancelled":
		return AttemptStatusCancelled
	case "pending":
		return AttemptStatusPending
	case "in_process":
		return AttemptStatusInProcess
	case "refunded", "charged_back":
		return AttemptStatusRefunded
	}
	return AttemptStatus(s)
}
