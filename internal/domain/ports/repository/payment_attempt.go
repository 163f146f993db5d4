package repository

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
)

type PaymentAttemptRepository interface {
	Save(ctx context.Context, tx Tx, a *model.PaymentAttempt) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentAttempt, error)
	// FindLatestByUser returns the most recent attempt for the user,
	// narrowed to preferenceID when non-empty. ErrNotFound if none.
	FindLatestByUser(ctx context.Context, tx Tx, userID, preferenceID string) (*model.PaymentAttempt, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.AttemptStatus) error
	// CancelPendingExcept cancels every pending attempt of the user
	// except keepID and reports how many rows changed.
	CancelPendingExcept(ctx context.Context, tx Tx, userID, keepID string) (int64, error)
	// ListPendingOlderThan returns pending attempts created before
	// cutoff, oldest first, capped at limit. Backs the lost-webhook
	// sweep.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.PaymentAttempt, error)
}
