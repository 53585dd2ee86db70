// Package sqlmockdb builds db.DBConnectionPool values backed by go-sqlmock, for unit tests that assert the exact SQL a
// component issues without a running Postgres.
package sqlmockdb

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
)

// New returns a connection pool backed by sqlmock. Expectations are matched in order and verified on test cleanup.
func New(t *testing.T) (db.DBConnectionPool, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	pool := db.NewDBConnectionPool(sqlx.NewDb(mockDB, "postgres"), "postgres://sqlmock/test?sslmode=disable")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = mockDB.Close()
	})

	return pool, mock
}
