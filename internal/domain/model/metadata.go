package model

import "fmt"

// PaymentMetadata is the typed view of the free-form metadata object we
// attach to checkout preferences and read back from gateway payment
// records. Parsed once at ingestion; everything downstream works with
// this struct instead of raw maps.
type PaymentMetadata struct {
	UserID       string
	PlanID       string
	PlanInterval BillingInterval
}

// ParsePaymentMetadata tolerates the gateway echoing values back as
// numbers or with shuffled key casing.
func ParsePaymentMetadata(raw map[string]any) PaymentMetadata {
	return PaymentMetadata{
		UserID:       metaString(raw, "user_id"),
		PlanID:       metaString(raw, "plan_id"),
		PlanInterval: ParseInterval(metaString(raw, "plan_interval")),
	}
}

func metaString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
