package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

// planRepo reads run outside the reconciliation transaction: the
// catalog is read-mostly and sits behind the cache decorator.
type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planCols = `id, name, price, billing_interval, active, description, created_at`

func (r *planRepo) Save(ctx context.Context, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, billing_interval=$4, active=$5, description=$6;`

	_, err := r.pool.Exec(ctx, q,
		p.ID, p.Name, p.Price, string(p.BillingInterval), p.Active, p.Description, p.CreatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE id=$1;`
	return scanPlan(r.pool.QueryRow(ctx, q, id))
}

func (r *planRepo) ListActive(ctx context.Context) ([]*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE active ORDER BY price ASC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var plans []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return plans, nil
}

// unaccent is inlined with TRANSLATE so matching works on plain
// installs without the unaccent extension.
const planNameNorm = `LOWER(TRANSLATE(name, 'áàâãéêíóôõúüç', 'aaaaeeiooouuc'))`

// SearchByName returns the cheapest active plan whose normalized name
// contains the token, optionally restricted to one billing interval.
func (r *planRepo) SearchByName(ctx context.Context, nameToken string, interval model.BillingInterval) (*model.Plan, error) {
	if interval != "" {
		const q = `
SELECT ` + planCols + `
  FROM plans
 WHERE active AND ` + planNameNorm + ` LIKE '%' || $1 || '%' AND billing_interval=$2
 ORDER BY price ASC
 LIMIT 1;`
		return scanPlan(r.pool.QueryRow(ctx, q, nameToken, string(interval)))
	}
	const q = `
SELECT ` + planCols + `
  FROM plans
 WHERE active AND ` + planNameNorm + ` LIKE '%' || $1 || '%'
 ORDER BY price ASC
 LIMIT 1;`
	return scanPlan(r.pool.QueryRow(ctx, q, nameToken))
}

func (r *planRepo) FindByInterval(ctx context.Context, interval model.BillingInterval) (*model.Plan, error) {
	const q = `
SELECT ` + planCols + `
  FROM plans
 WHERE active AND billing_interval=$1
 ORDER BY price ASC
 LIMIT 1;`
	return scanPlan(r.pool.QueryRow(ctx, q, string(interval)))
}

// Delete deactivates; subscriptions keep referencing the row.
func (r *planRepo) Delete(ctx context.Context, id string) error {
	const q = `UPDATE plans SET active=FALSE WHERE id=$1;`
	cmd, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	var interval string
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &interval, &p.Active, &p.Description, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.BillingInterval = model.BillingInterval(interval)
	return p, nil
}
