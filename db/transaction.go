package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/stellar/go-stellar-sdk/support/log"
)

// DBTransaction is the subset of *sqlx.Tx used by repositories.
type DBTransaction interface {
	SQLExecuter
	Rollback() error
	Commit() error
}

var _ DBTransaction = (*sqlx.Tx)(nil)

// TransactionExecutionError wraps an error returned by the function run inside a transaction, as opposed to an error
// starting or committing it.
type TransactionExecutionError struct {
	err error
}

func NewTransactionExecutionError(err error) *TransactionExecutionError {
	return &TransactionExecutionError{err: err}
}

func (t *TransactionExecutionError) Error() string {
	return fmt.Sprintf("transaction execution error: %s", t.err.Error())
}

func (t *TransactionExecutionError) Unwrap() error {
	return t.err
}

func IsTransactionExecutionError(err error) bool {
	var eErr *TransactionExecutionError
	return errors.As(err, &eErr)
}

// RunInTransactionWithResult runs atomicFunction in a transaction and commits it when the function succeeds. The
// transaction is rolled back when the function returns an error or panics; panics are re-raised after the rollback.
func RunInTransactionWithResult[T any](ctx context.Context, dbConnectionPool DBConnectionPool, opts *sql.TxOptions, atomicFunction func(dbTx DBTransaction) (T, error)) (result T, err error) {
	var zero T

	dbTx, err := dbConnectionPool.BeginTxx(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			rollback(ctx, dbTx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		rollback(ctx, dbTx, err)
	}()

	if result, err = atomicFunction(dbTx); err != nil {
		return zero, NewTransactionExecutionError(err)
	}

	if err = dbTx.Commit(); err != nil {
		return zero, fmt.Errorf("committing transaction: %w", err)
	}
	committed = true

	return result, nil
}

// RunInTransaction is RunInTransactionWithResult for functions without a result.
func RunInTransaction(ctx context.Context, dbConnectionPool DBConnectionPool, opts *sql.TxOptions, atomicFunction func(dbTx DBTransaction) error) error {
	_, err := RunInTransactionWithResult(ctx, dbConnectionPool, opts, func(dbTx DBTransaction) (struct{}, error) {
		return struct{}{}, atomicFunction(dbTx)
	})
	return err
}

func rollback(ctx context.Context, dbTx DBTransaction, cause error) {
	if IsTransactionExecutionError(cause) {
		log.Ctx(ctx).Debugf("rolling back transaction: %v", cause)
	} else {
		log.Ctx(ctx).Errorf("rolling back transaction: %v", cause)
	}
	if err := dbTx.Rollback(); err != nil {
		log.Ctx(ctx).Errorf("rolling back transaction: %v", err)
	}
}
