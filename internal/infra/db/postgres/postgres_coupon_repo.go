package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

const couponCols = `id, code, discount_type, discount_value, usage_limit, usage_count, expires_at, active, created_at`

func (r *couponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	const q = `SELECT ` + couponCols + ` FROM coupons WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	const q = `SELECT ` + couponCols + ` FROM coupons WHERE UPPER(code)=UPPER($1);`
	return r.queryOne(ctx, tx, q, code)
}

// RecordUsage is once-only per (coupon, user): the unique pair index
// turns a second redemption into ErrAlreadyExists without touching the
// counter.
func (r *couponRepo) RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string) error {
	const ins = `
INSERT INTO coupon_usages (id, coupon_id, user_id, used_at)
VALUES ($1,$2,$3,NOW());`
	_, err := execSQL(ctx, r.pool, tx, ins, uuid.NewString(), couponID, userID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	const bump = `UPDATE coupons SET usage_count = usage_count + 1 WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, bump, couponID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Coupon, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	c := &model.Coupon{}
	var dtype string
	if err := row.Scan(&c.ID, &c.Code, &dtype, &c.DiscountValue, &c.UsageLimit, &c.UsageCount, &c.ExpiresAt, &c.Active, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.DiscountType = model.DiscountType(dtype)
	return c, nil
}
