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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentCols = `id, user_id, amount, currency, payment_method, transaction_id, status, subscription_id, created_at`

// Insert relies on the unique index on transaction_id: a conflicting
// insert means the gateway payment was already recorded by a previous
// (or concurrent) delivery.
func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Amount, p.Currency, p.PaymentMethod, p.TransactionID, p.Status, p.SubscriptionID, p.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrDuplicatePayment
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE transaction_id=$1 LIMIT 1;`
	return r.queryOne(ctx, tx, q, transactionID)
}

func (r *paymentRepo) FindRecentApprovedByUser(ctx context.Context, tx repository.Tx, userID string, since time.Time) (*model.Payment, error) {
	const q = `
SELECT ` + paymentCols + `
  FROM payments
 WHERE user_id=$1 AND status='approved' AND created_at >= $2
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID, since)
}

func (r *paymentRepo) SumByPeriod(ctx context.Context, tx repository.Tx, period string) (float64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='approved' AND created_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.TransactionID, &p.Status, &p.SubscriptionID, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
