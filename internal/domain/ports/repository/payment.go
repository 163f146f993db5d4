package repository

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
)

type PaymentRepository interface {
	// Insert adds a ledger entry. Returns ErrDuplicatePayment when a row
	// with the same transaction_id already exists.
	Insert(ctx context.Context, tx Tx, p *model.Payment) error
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	// FindRecentApprovedByUser returns the newest approved payment for
	// the user created at or after since. ErrNotFound if none.
	FindRecentApprovedByUser(ctx context.Context, tx Tx, userID string, since time.Time) (*model.Payment, error)
	// SumByPeriod totals approved payments since the start of the
	// current period ("week" | "month" | "year").
	SumByPeriod(ctx context.Context, tx Tx, period string) (float64, error)
}
