package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.PaymentAttemptRepository = (*attemptRepo)(nil)

type attemptRepo struct{ pool *pgxpool.Pool }

func NewAttemptRepo(pool *pgxpool.Pool) *attemptRepo {
	return &attemptRepo{pool: pool}
}

const attemptCols = `id, user_id, preference_id, plan_id, plan_name, plan_price, plan_interval, status, coupon_id, created_at, updated_at`

func (r *attemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error {
	const q = `
INSERT INTO payment_attempts (` + attemptCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  preference_id=$3, plan_id=$4, plan_name=$5, plan_price=$6, plan_interval=$7, status=$8, coupon_id=$9, updated_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.UserID, a.PreferenceID, a.PlanID, a.PlanName, a.PlanPrice, string(a.PlanInterval), string(a.Status), a.CouponID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *attemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentAttempt, error) {
	const q = `SELECT ` + attemptCols + ` FROM payment_attempts WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *attemptRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID, preferenceID string) (*model.PaymentAttempt, error) {
	if preferenceID != "" {
		const q = `
SELECT ` + attemptCols + `
  FROM payment_attempts
 WHERE user_id=$1 AND preference_id=$2
 ORDER BY created_at DESC
 LIMIT 1;`
		return r.queryOne(ctx, tx, q, userID, preferenceID)
	}
	const q = `
SELECT ` + attemptCols + `
  FROM payment_attempts
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *attemptRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus) error {
	const q = `UPDATE payment_attempts SET status=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *attemptRepo) CancelPendingExcept(ctx context.Context, tx repository.Tx, userID, keepID string) (int64, error) {
	const q = `
UPDATE payment_attempts
   SET status='cancelled', updated_at=NOW()
 WHERE user_id=$1 AND status='pending' AND id <> $2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, keepID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *attemptRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PaymentAttempt, error) {
	const q = `
SELECT ` + attemptCols + `
  FROM payment_attempts
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.PaymentAttempt
	for rows.Next() {
		a := &model.PaymentAttempt{}
		var interval, status string
		if err := rows.Scan(&a.ID, &a.UserID, &a.PreferenceID, &a.PlanID, &a.PlanName, &a.PlanPrice, &interval, &status, &a.CouponID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.PlanInterval = model.BillingInterval(interval)
		a.Status = model.AttemptStatus(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *attemptRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.PaymentAttempt, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	a := &model.PaymentAttempt{}
	var interval, status string
	if err := row.Scan(&a.ID, &a.UserID, &a.PreferenceID, &a.PlanID, &a.PlanName, &a.PlanPrice, &interval, &status, &a.CouponID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	a.PlanInterval = model.BillingInterval(interval)
	a.Status = model.AttemptStatus(status)
	return a, nil
}
