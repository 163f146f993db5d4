package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Revenue(ctx context.Context) (week, month, year float64, err error)
	ActiveByPlan(ctx context.Context) (map[string]int, error)
}

type statsUC struct {
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(subs repository.SubscriptionRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{subs: subs, payments: payments, log: logger}
}

func (s *statsUC) Revenue(ctx context.Context) (float64, float64, float64, error) {
	w, err := s.payments.SumByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := s.payments.SumByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := s.payments.SumByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return w, m, y, nil
}

func (s *statsUC) ActiveByPlan(ctx context.Context) (map[string]int, error) {
	return s.subs.CountActiveByPlan(ctx, repository.NoTX)
}
