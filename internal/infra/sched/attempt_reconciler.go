package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/metrics"
	"subscription-commerce/internal/infra/redis"
	"subscription-commerce/internal/usecase"
)

const sweepLockKey = "lock:attempt-reconciler"

// AttemptReconciler periodically scans for stale pending attempts and
// asks the gateway whether a payment actually happened, re-driving the
// reconciliation pipeline for any it finds. This covers webhooks that
// were never delivered or that arrived while the process was down.
type AttemptReconciler struct {
	reconcile usecase.ReconcileUseCase
	attempts  repository.PaymentAttemptRepository
	gateway   adapter.PaymentGateway
	locker    redis.Locker
	interval  time.Duration // how often to scan
	staleAge  time.Duration // how old a pending attempt must be to re-check
	log       *zerolog.Logger
}

func NewAttemptReconciler(
	reconcile usecase.ReconcileUseCase,
	attempts repository.PaymentAttemptRepository,
	gateway adapter.PaymentGateway,
	locker redis.Locker,
	interval, staleAge time.Duration,
	logger *zerolog.Logger,
) *AttemptReconciler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if staleAge <= 0 {
		staleAge = time.Hour
	}
	return &AttemptReconciler{
		reconcile: reconcile,
		attempts:  attempts,
		gateway:   gateway,
		locker:    locker,
		interval:  interval,
		staleAge:  staleAge,
		log:       logger,
	}
}

func (w *AttemptReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *AttemptReconciler) tick(ctx context.Context) {
	// One instance sweeps at a time; losing the lock just skips a round.
	token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			metrics.IncReconcilerRun("skipped")
			return
		}
		w.log.Warn().Err(err).Msg("attempt-reconciler: lock error")
		metrics.IncReconcilerRun("error")
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, sweepLockKey, token) }()

	cutoff := time.Now().Add(-w.staleAge)
	pending, err := w.attempts.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("attempt-reconciler: list pending failed")
		metrics.IncReconcilerRun("error")
		return
	}
	metrics.AddReconcilerAttemptsChecked(len(pending))

	for _, a := range pending {
		if a.PreferenceID == "" {
			continue
		}
		ids, err := w.gateway.SearchPaymentsByPreference(ctx, a.PreferenceID)
		if err != nil {
			w.log.Warn().Err(err).Str("attempt_id", a.ID).Str("preference_id", a.PreferenceID).
				Msg("attempt-reconciler: gateway search failed")
			continue
		}
		for _, paymentID := range ids {
			if _, err := w.reconcile.ProcessPayment(ctx, paymentID); err != nil {
				w.log.Warn().Err(err).Str("attempt_id", a.ID).Str("payment_id", paymentID).
					Msg("attempt-reconciler: reprocess failed")
				continue
			}
			w.log.Info().Str("attempt_id", a.ID).Str("payment_id", paymentID).
				Msg("attempt-reconciler: payment reconciled")
		}
	}
	metrics.IncReconcilerRun("ok")
}
