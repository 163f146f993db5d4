package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByUser returns the user's active subscription
	// (most recently updated first if data is dirty). ErrNotFound if none.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// FindLatestInactiveByUser returns the most recent non-active
	// subscription, the reactivation candidate. ErrNotFound if none.
	FindLatestInactiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	CountActiveByPlan(ctx context.Context, tx Tx) (map[string]int, error)
}
