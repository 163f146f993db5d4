package usecase

import (
	"context"

	"github.com/google/uuid"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

// PlanUseCase manages the plan catalog.
type PlanUseCase struct {
	repo repository.PlanRepository
}

func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Create validates and persists a new plan.
func (uc *PlanUseCase) Create(ctx context.Context, name string, price float64, interval model.BillingInterval, description string) (*model.Plan, error) {
	plan, err := model.NewPlan(uuid.NewString(), name, price, interval, description)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Update overwrites an existing plan's mutable fields.
func (uc *PlanUseCase) Update(ctx context.Context, id, name string, price float64, interval model.BillingInterval, description string, active bool) (*model.Plan, error) {
	plan, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Name = name
	plan.Price = price
	plan.BillingInterval = interval
	plan.Description = description
	plan.Active = active
	if err := uc.repo.Save(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *PlanUseCase) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListActive(ctx)
}

func (uc *PlanUseCase) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
