package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// FinancialLogRepository appends audit entries. Callers treat failures
// as non-fatal.
type FinancialLogRepository interface {
	Append(ctx context.Context, tx Tx, entry *model.FinancialLog) error
}
