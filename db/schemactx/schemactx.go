// Package schemactx scopes database work to a single tenant schema.
//
// A scope is entered with Runner.WithSchema (which owns its transaction) or WithinTransaction (which joins a
// transaction the caller already holds). While the scope is active the transaction's search_path contains only the
// tenant schema, so unqualified names never resolve against the shared namespace or any other tenant. The previous
// search_path is restored when the scope exits, and the setting is transaction-local so it can never leak into other
// users of the connection pool.
package schemactx

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
)

var (
	ErrInvalidSchemaName = errors.New("invalid schema name")
	ErrSchemaNotFound    = errors.New("schema not found")
	ErrNilScopedFunc     = errors.New("scoped function cannot be nil")
)

// MaxIdentifierLength is the longest identifier Postgres stores without truncation.
const MaxIdentifierLength = 63

var rxSchemaName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateSchemaName checks a schema name against the grammar tenant schemas are allocated with.
func ValidateSchemaName(schemaName string) error {
	if len(schemaName) > MaxIdentifierLength || !rxSchemaName.MatchString(schemaName) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, schemaName)
	}
	return nil
}

// ScopedFunc is the unit of work executed inside a schema scope. The ctx it receives carries the scope, see
// FromContext.
type ScopedFunc func(ctx context.Context, scope *Scope) error

// Scope is the handle to an active schema scope. It is only valid until the ScopedFunc it was passed to returns.
type Scope struct {
	schemaName string
	dbTx       db.DBTransaction
}

// SchemaName returns the schema this scope resolves names against.
func (s *Scope) SchemaName() string {
	return s.schemaName
}

// SQLExecuter returns the executer bound to this scope. Every statement issued through it runs against the scope's
// schema.
func (s *Scope) SQLExecuter() db.SQLExecuter {
	return s.dbTx
}

// WithSchema enters a nested scope on the same transaction. When fn returns, the search_path is set back to this
// scope's schema.
func (s *Scope) WithSchema(ctx context.Context, schemaName string, fn ScopedFunc) error {
	return WithinTransaction(ctx, s.dbTx, schemaName, fn)
}

type scopeContextKey struct{}

// FromContext returns the innermost active scope stored in ctx.
func FromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok && scope != nil
}

// SchemaNameFromContext returns the schema of the innermost active scope, or the shared schema when there is none.
func SchemaNameFromContext(ctx context.Context) string {
	if scope, ok := FromContext(ctx); ok {
		return scope.schemaName
	}
	return db.DefaultSchema
}

// Runner opens schema scopes on its own transactions.
type Runner struct {
	dbConnectionPool db.DBConnectionPool
}

func NewRunner(dbConnectionPool db.DBConnectionPool) (*Runner, error) {
	if dbConnectionPool == nil {
		return nil, fmt.Errorf("dbConnectionPool cannot be nil")
	}
	return &Runner{dbConnectionPool: dbConnectionPool}, nil
}

// WithSchema runs fn in a new transaction scoped to schemaName. The transaction is committed when fn succeeds and
// rolled back otherwise. If the schema does not exist, fn is never called.
func (r *Runner) WithSchema(ctx context.Context, schemaName string, fn ScopedFunc) error {
	if err := ValidateSchemaName(schemaName); err != nil {
		return err
	}

	err := db.RunInTransaction(ctx, r.dbConnectionPool, nil, func(dbTx db.DBTransaction) error {
		return WithinTransaction(ctx, dbTx, schemaName, fn)
	})
	if err != nil {
		return fmt.Errorf("running in schema %s: %w", schemaName, err)
	}
	return nil
}

// WithinTransaction enters schemaName on an existing transaction, runs fn and restores whatever search_path was active
// before. The caller keeps ownership of dbTx.
func WithinTransaction(ctx context.Context, dbTx db.DBTransaction, schemaName string, fn ScopedFunc) (err error) {
	if fn == nil {
		return ErrNilScopedFunc
	}
	if err = ValidateSchemaName(schemaName); err != nil {
		return err
	}

	exists, err := schemaExists(ctx, dbTx, schemaName)
	if err != nil {
		return fmt.Errorf("checking if schema %s exists: %w", schemaName, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSchemaNotFound, schemaName)
	}

	var previousSearchPath string
	if err = dbTx.GetContext(ctx, &previousSearchPath, "SELECT current_setting('search_path')"); err != nil {
		return fmt.Errorf("reading current search_path: %w", err)
	}

	if err = setSearchPath(ctx, dbTx, pq.QuoteIdentifier(schemaName)); err != nil {
		return fmt.Errorf("switching search_path to %s: %w", schemaName, err)
	}

	defer func() {
		restoreErr := setSearchPath(ctx, dbTx, previousSearchPath)
		if restoreErr == nil {
			return
		}
		if err != nil {
			// The transaction is most likely aborted already and will be rolled back, which discards the setting.
			log.Ctx(ctx).Debugf("restoring search_path after failure in schema %s: %v", schemaName, restoreErr)
			return
		}
		err = fmt.Errorf("restoring search_path to %q: %w", previousSearchPath, restoreErr)
	}()

	scope := &Scope{schemaName: schemaName, dbTx: dbTx}
	scopedCtx := context.WithValue(ctx, scopeContextKey{}, scope)

	return fn(scopedCtx, scope)
}

func schemaExists(ctx context.Context, sqlExec db.SQLExecuter, schemaName string) (bool, error) {
	var exists bool
	err := sqlExec.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)", schemaName)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// setSearchPath changes the search_path until the end of the current transaction.
func setSearchPath(ctx context.Context, sqlExec db.SQLExecuter, searchPath string) error {
	_, err := sqlExec.ExecContext(ctx, "SELECT set_config('search_path', $1, true)", searchPath)
	return err
}
