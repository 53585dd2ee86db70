// Package dbmetrics wraps the db package connection pools and transactions so every query duration is reported to the
// monitor service, labelled by query type and outcome.
package dbmetrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
)

type QueryType string

const (
	DeleteQueryType    QueryType = "DELETE"
	InsertQueryType    QueryType = "INSERT"
	SelectQueryType    QueryType = "SELECT"
	UpdateQueryType    QueryType = "UPDATE"
	SetConfigQueryType QueryType = "SET_CONFIG"
	DDLQueryType       QueryType = "DDL"
	UndefinedQueryType QueryType = "UNDEFINED"
)

// SQLExecuter reports the duration of every query run through the wrapped executer.
type SQLExecuter struct {
	db.SQLExecuter
	monitorService monitor.MonitorServiceInterface
}

var _ db.SQLExecuter = (*SQLExecuter)(nil)

func NewSQLExecuter(sqlExec db.SQLExecuter, monitorService monitor.MonitorServiceInterface) (*SQLExecuter, error) {
	if sqlExec == nil {
		return nil, fmt.Errorf("sqlExec cannot be nil")
	}
	if monitorService == nil {
		return nil, fmt.Errorf("monitorService cannot be nil")
	}
	return &SQLExecuter{SQLExecuter: sqlExec, monitorService: monitorService}, nil
}

func (s *SQLExecuter) observe(start time.Time, query string, err error) {
	tag := monitor.SuccessfulQueryDurationTag
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		tag = monitor.FailureQueryDurationTag
	}

	labels := monitor.DBQueryLabels{QueryType: string(queryTypeOf(query))}
	if metricErr := s.monitorService.MonitorDuration(time.Since(start), tag, labels.ToMap()); metricErr != nil {
		log.Errorf("monitoring db query duration: %v", metricErr)
	}
}

func (s *SQLExecuter) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := s.SQLExecuter.GetContext(ctx, dest, query, args...)
	s.observe(start, query, err)
	return err
}

func (s *SQLExecuter) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := s.SQLExecuter.SelectContext(ctx, dest, query, args...)
	s.observe(start, query, err)
	return err
}

func (s *SQLExecuter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := s.SQLExecuter.ExecContext(ctx, query, args...)
	s.observe(start, query, err)
	return result, err
}

func (s *SQLExecuter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.SQLExecuter.QueryContext(ctx, query, args...)
	s.observe(start, query, err)
	return rows, err
}

func (s *SQLExecuter) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := s.SQLExecuter.QueryxContext(ctx, query, args...)
	s.observe(start, query, err)
	return rows, err
}

func (s *SQLExecuter) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	start := time.Now()
	row := s.SQLExecuter.QueryRowxContext(ctx, query, args...)
	s.observe(start, query, row.Err())
	return row
}

// ConnectionPool is a db.DBConnectionPool whose queries, including the ones run inside its transactions, are
// monitored.
type ConnectionPool struct {
	SQLExecuter
	pool db.DBConnectionPool
}

var _ db.DBConnectionPool = (*ConnectionPool)(nil)

func NewConnectionPool(pool db.DBConnectionPool, monitorService monitor.MonitorServiceInterface) (*ConnectionPool, error) {
	sqlExec, err := NewSQLExecuter(pool, monitorService)
	if err != nil {
		return nil, fmt.Errorf("creating monitored SQL executer: %w", err)
	}
	return &ConnectionPool{SQLExecuter: *sqlExec, pool: pool}, nil
}

func (p *ConnectionPool) BeginTxx(ctx context.Context, opts *sql.TxOptions) (db.DBTransaction, error) {
	dbTx, err := p.pool.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting a new transaction: %w", err)
	}
	return NewTransaction(dbTx, p.monitorService)
}

func (p *ConnectionPool) Close() error {
	return p.pool.Close()
}

func (p *ConnectionPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *ConnectionPool) SqlDB(ctx context.Context) (*sql.DB, error) {
	return p.pool.SqlDB(ctx)
}

func (p *ConnectionPool) SqlxDB(ctx context.Context) (*sqlx.DB, error) {
	return p.pool.SqlxDB(ctx)
}

func (p *ConnectionPool) DSN(ctx context.Context) (string, error) {
	return p.pool.DSN(ctx)
}

type Transaction struct {
	SQLExecuter
	dbTx db.DBTransaction
}

var _ db.DBTransaction = (*Transaction)(nil)

func NewTransaction(dbTx db.DBTransaction, monitorService monitor.MonitorServiceInterface) (*Transaction, error) {
	sqlExec, err := NewSQLExecuter(dbTx, monitorService)
	if err != nil {
		return nil, fmt.Errorf("creating monitored SQL executer: %w", err)
	}
	return &Transaction{SQLExecuter: *sqlExec, dbTx: dbTx}, nil
}

func (t *Transaction) Commit() error {
	return t.dbTx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.dbTx.Rollback()
}

// queryTypeOf classifies a query by its leading keyword. CTEs are classified by the statement that follows them.
func queryTypeOf(query string) QueryType {
	words := strings.Fields(strings.ToUpper(query))
	if len(words) == 0 {
		return UndefinedQueryType
	}

	if words[0] == "WITH" {
		for _, word := range words[1:] {
			switch word {
			case "INSERT", "UPDATE", "DELETE":
				return QueryType(word)
			}
		}
		return SelectQueryType
	}

	switch words[0] {
	case "SELECT":
		if strings.HasPrefix(words[min(1, len(words)-1)], "SET_CONFIG(") {
			return SetConfigQueryType
		}
		return SelectQueryType
	case "INSERT", "UPDATE", "DELETE":
		return QueryType(words[0])
	case "CREATE", "DROP", "ALTER":
		return DDLQueryType
	default:
		return UndefinedQueryType
	}
}
