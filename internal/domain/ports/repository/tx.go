package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque executor handle. Repositories accept it on every
// method; nil means "run on the pool". The concrete type is
// infra-defined (pgx.Tx for Postgres).
type Tx interface{}

// NoTX is the explicit non-transactional handle.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, passing
// the transaction handle through tx. It keeps transaction types out of
// use-case signatures while still letting repositories run
// SELECT ... FOR UPDATE or advisory locks on the tx connection.
//
// If fn returns an error the transaction rolls back, otherwise it
// commits.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
	// LockUser takes a transaction-scoped advisory lock serializing all
	// reconciliation work for one user. Must be called with a tx handle.
	LockUser(ctx context.Context, tx Tx, userID string) error
}
