package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

var _ repository.FinancialLogRepository = (*financialLogRepo)(nil)

type financialLogRepo struct{ pool *pgxpool.Pool }

func NewFinancialLogRepo(pool *pgxpool.Pool) *financialLogRepo {
	return &financialLogRepo{pool: pool}
}

func (r *financialLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.FinancialLog) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO financial_logs (id, user_id, action, description, payload, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err = execSQL(ctx, r.pool, tx, q,
		entry.ID, entry.UserID, entry.Action, entry.Description, payload, entry.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
