package model

import "time"

// Payment is an immutable ledger entry for a processed charge.
// TransactionID is the gateway's payment id and is the natural
// idempotency key: the store enforces uniqueness on it.
type Payment struct {
	ID             string // UUID
	UserID         string
	Amount         float64
	Currency       string
	PaymentMethod  string
	TransactionID  string
	Status         string
	SubscriptionID *string
	CreatedAt      time.Time
}
