package model

import "time"

// Financial log actions.
const (
	LogPaymentProcessed = "payment_processed"
	LogPaymentReceived  = "payment_received" // degraded path: payment without attempt context
	LogCouponUsed       = "coupon_used"
)

// FinancialLog is an append-only audit trail entry. Writes are
// best-effort: a failed append must never abort the owning operation.
type FinancialLog struct {
	ID          string // ULID, sortable by creation time
	UserID      string
	Action      string
	Description string
	Payload     map[string]any // serialized as JSONB
	CreatedAt   time.Time
}
