//nolint:wrapcheck // Wrapper structs, no extra context needed
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DefaultSchema is the shared namespace holding the tenant directory and the signup requests.
const DefaultSchema = "public"

// SQLExecuter is the query surface shared by *sqlx.DB and *sqlx.Tx. Repositories accept it so they can run either
// against the pool or inside a transaction.
type SQLExecuter interface {
	DriverName() string
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	sqlx.PreparerContext
	sqlx.QueryerContext
	Rebind(query string) string
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// DBConnectionPool is a pool of connections to a single DSN. Every tenant schema and the shared namespace are
// reachable through the same pool, the active schema being selected per transaction.
type DBConnectionPool interface {
	SQLExecuter
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransaction, error)
	Close() error
	Ping(ctx context.Context) error
	SqlDB(ctx context.Context) (*sql.DB, error)
	SqlxDB(ctx context.Context) (*sqlx.DB, error)
	DSN(ctx context.Context) (string, error)
}

var (
	_ SQLExecuter      = (*sqlx.DB)(nil)
	_ SQLExecuter      = (*sqlx.Tx)(nil)
	_ DBConnectionPool = (*DBConnectionPoolImplementation)(nil)
)

type poolSettings struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

// PoolOption tunes the underlying sql.DB of a pool opened with OpenDBConnectionPool.
type PoolOption func(*poolSettings)

func WithMaxOpenConns(n int) PoolOption {
	return func(s *poolSettings) { s.maxOpenConns = n }
}

func WithMaxIdleConns(n int) PoolOption {
	return func(s *poolSettings) { s.maxIdleConns = n }
}

func WithConnMaxLifetime(d time.Duration) PoolOption {
	return func(s *poolSettings) { s.connMaxLifetime = d }
}

// DBConnectionPoolImplementation implements DBConnectionPool on top of *sqlx.DB.
type DBConnectionPoolImplementation struct {
	*sqlx.DB
	dataSourceName string
}

// OpenDBConnectionPool opens a postgres pool and pings it, so a wrong DSN is reported at startup. Unless the DSN
// already sets one, sessions get search_path=public, so unqualified names never resolve to a tenant schema that
// happens to share the name of the database role.
func OpenDBConnectionPool(dataSourceName string, opts ...PoolOption) (DBConnectionPool, error) {
	settings := poolSettings{
		maxOpenConns:    20,
		maxIdleConns:    2,
		connMaxIdleTime: 10 * time.Second,
		connMaxLifetime: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	dataSourceName = pinSearchPath(dataSourceName)
	sqlxDB, err := sqlx.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database connection pool: %w", err)
	}
	sqlxDB.SetMaxOpenConns(settings.maxOpenConns)
	sqlxDB.SetMaxIdleConns(settings.maxIdleConns)
	sqlxDB.SetConnMaxIdleTime(settings.connMaxIdleTime)
	sqlxDB.SetConnMaxLifetime(settings.connMaxLifetime)

	if err = sqlxDB.Ping(); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("pinging database connection pool: %w", err)
	}

	return NewDBConnectionPool(sqlxDB, dataSourceName), nil
}

// NewDBConnectionPool wraps an already opened *sqlx.DB, such as one backed by sqlmock.
func NewDBConnectionPool(sqlxDB *sqlx.DB, dataSourceName string) *DBConnectionPoolImplementation {
	return &DBConnectionPoolImplementation{DB: sqlxDB, dataSourceName: dataSourceName}
}

func (p *DBConnectionPoolImplementation) BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransaction, error) {
	return p.DB.BeginTxx(ctx, opts)
}

func (p *DBConnectionPoolImplementation) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

func (p *DBConnectionPoolImplementation) SqlDB(_ context.Context) (*sql.DB, error) {
	if p.DB == nil || p.DB.DB == nil {
		return nil, fmt.Errorf("sql.DB is not initialized")
	}
	return p.DB.DB, nil
}

func (p *DBConnectionPoolImplementation) SqlxDB(_ context.Context) (*sqlx.DB, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("sqlx.DB is not initialized")
	}
	return p.DB, nil
}

func (p *DBConnectionPoolImplementation) DSN(_ context.Context) (string, error) {
	return p.dataSourceName, nil
}

// SchemaFromDSN returns the search_path pinned in the DSN, or DefaultSchema when the DSN does not pin one.
func SchemaFromDSN(dataSourceName string) string {
	u, err := url.Parse(dataSourceName)
	if err != nil {
		return DefaultSchema
	}
	if searchPath := u.Query().Get("search_path"); searchPath != "" {
		return searchPath
	}
	return DefaultSchema
}

// pinSearchPath adds search_path=DefaultSchema to URL-style DSNs that do not set a search_path.
func pinSearchPath(dataSourceName string) string {
	u, err := url.Parse(dataSourceName)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dataSourceName
	}
	q := u.Query()
	if q.Get("search_path") != "" {
		return dataSourceName
	}
	q.Set("search_path", DefaultSchema)
	u.RawQuery = q.Encode()
	return u.String()
}
