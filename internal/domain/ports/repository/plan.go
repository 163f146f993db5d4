package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// PlanRepository is the port for catalog persistence. Search methods
// only consider active plans; they back the resolver's fallback chain.
type PlanRepository interface {
	Save(ctx context.Context, p *model.Plan) error
	FindByID(ctx context.Context, id string) (*model.Plan, error)
	ListActive(ctx context.Context) ([]*model.Plan, error)
	// SearchByName does a case/diacritic-insensitive substring match on
	// plan names, filtered by interval when non-empty.
	SearchByName(ctx context.Context, nameToken string, interval model.BillingInterval) (*model.Plan, error)
	FindByInterval(ctx context.Context, interval model.BillingInterval) (*model.Plan, error)
	Delete(ctx context.Context, id string) error
}
