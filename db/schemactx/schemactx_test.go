package schemactx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/sqlmockdb"
)

const (
	existsQuery         = `SELECT EXISTS\(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = \$1\)`
	currentSettingQuery = `SELECT current_setting\('search_path'\)`
	setConfigQuery      = `SELECT set_config\('search_path', \$1, true\)`
)

func Test_ValidateSchemaName(t *testing.T) {
	valid := []string{"a", "acme_co", "tenant_123", "a23456789012345678901234567890123456789012345678901234567890123"}
	for _, name := range valid {
		assert.NoError(t, ValidateSchemaName(name), name)
	}

	invalid := []string{"", "1acme", "_acme", "Acme", "acme-co", "acme co", `acme"; DROP SCHEMA public; --`, "a234567890123456789012345678901234567890123456789012345678901234"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateSchemaName(name), ErrInvalidSchemaName, name)
	}
}

func Test_Runner_WithSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("runs fn in the schema and restores the previous search_path", func(t *testing.T) {
		pool, mock := sqlmockdb.New(t)
		runner, err := NewRunner(pool)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(existsQuery).WithArgs("acme").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(currentSettingQuery).WillReturnRows(sqlmock.NewRows([]string{"current_setting"}).AddRow(`"$user", public`))
		mock.ExpectExec(setConfigQuery).WithArgs(`"acme"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO roles`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setConfigQuery).WithArgs(`"$user", public`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		called := false
		err = runner.WithSchema(ctx, "acme", func(ctx context.Context, scope *Scope) error {
			called = true
			assert.Equal(t, "acme", scope.SchemaName())
			assert.Equal(t, "acme", SchemaNameFromContext(ctx))

			_, execErr := scope.SQLExecuter().ExecContext(ctx, "INSERT INTO roles (name) VALUES ('admin')")
			return execErr
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("fails closed when the schema does not exist", func(t *testing.T) {
		pool, mock := sqlmockdb.New(t)
		runner, err := NewRunner(pool)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(existsQuery).WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err = runner.WithSchema(ctx, "ghost", func(ctx context.Context, scope *Scope) error {
			t.Fatal("fn must not be called")
			return nil
		})
		require.ErrorIs(t, err, ErrSchemaNotFound)
	})

	t.Run("rejects invalid names without touching the database", func(t *testing.T) {
		pool, _ := sqlmockdb.New(t)
		runner, err := NewRunner(pool)
		require.NoError(t, err)

		err = runner.WithSchema(ctx, "public; DROP TABLE tenants", func(ctx context.Context, scope *Scope) error {
			t.Fatal("fn must not be called")
			return nil
		})
		require.ErrorIs(t, err, ErrInvalidSchemaName)
	})

	t.Run("restores and rolls back when fn fails", func(t *testing.T) {
		pool, mock := sqlmockdb.New(t)
		runner, err := NewRunner(pool)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(existsQuery).WithArgs("acme").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(currentSettingQuery).WillReturnRows(sqlmock.NewRows([]string{"current_setting"}).AddRow("public"))
		mock.ExpectExec(setConfigQuery).WithArgs(`"acme"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setConfigQuery).WithArgs("public").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = runner.WithSchema(ctx, "acme", func(ctx context.Context, scope *Scope) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.True(t, db.IsTransactionExecutionError(err))
	})

	t.Run("nested scopes restore the enclosing tenant schema", func(t *testing.T) {
		pool, mock := sqlmockdb.New(t)
		runner, err := NewRunner(pool)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectQuery(existsQuery).WithArgs("acme").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(currentSettingQuery).WillReturnRows(sqlmock.NewRows([]string{"current_setting"}).AddRow("public"))
		mock.ExpectExec(setConfigQuery).WithArgs(`"acme"`).WillReturnResult(sqlmock.NewResult(0, 1))
		// inner scope
		mock.ExpectQuery(existsQuery).WithArgs("globex").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(currentSettingQuery).WillReturnRows(sqlmock.NewRows([]string{"current_setting"}).AddRow(`"acme"`))
		mock.ExpectExec(setConfigQuery).WithArgs(`"globex"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setConfigQuery).WithArgs(`"acme"`).WillReturnResult(sqlmock.NewResult(0, 1))
		// outer scope exit
		mock.ExpectExec(setConfigQuery).WithArgs("public").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = runner.WithSchema(ctx, "acme", func(ctx context.Context, outer *Scope) error {
			innerErr := outer.WithSchema(ctx, "globex", func(ctx context.Context, inner *Scope) error {
				assert.Equal(t, "globex", SchemaNameFromContext(ctx))
				return nil
			})
			assert.Equal(t, "acme", SchemaNameFromContext(ctx))
			return innerErr
		})
		require.NoError(t, err)
	})
}

func Test_SchemaNameFromContext_outsideScope(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, db.DefaultSchema, SchemaNameFromContext(context.Background()))
}

func Test_NewRunner(t *testing.T) {
	_, err := NewRunner(nil)
	require.EqualError(t, err, "dbConnectionPool cannot be nil")
}
