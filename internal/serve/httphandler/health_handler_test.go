package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/dbtest"
)

func newHealthRouter(t *testing.T, dbConnectionPool db.DBConnectionPool) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/health", HealthHandler{
		Version:          "x.y.z",
		ServiceID:        "crm-platform",
		ReleaseID:        "1234567890abcdef",
		DBConnectionPool: dbConnectionPool,
	}.ServeHTTP)
	return r
}

func TestHealthHandler(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	r := newHealthRouter(t, dbConnectionPool)

	t.Run("healthy", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"status": "pass",
			"version": "x.y.z",
			"service_id": "crm-platform",
			"release_id": "1234567890abcdef",
			"services": {"database": "pass", "tenant_directory": "pass"}
		}`, w.Body.String())
	})

	t.Run("unhealthy when the database is unreachable", func(t *testing.T) {
		require.NoError(t, dbConnectionPool.Close())

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{
			"status": "fail",
			"version": "x.y.z",
			"service_id": "crm-platform",
			"release_id": "1234567890abcdef",
			"services": {"database": "fail", "tenant_directory": "fail"}
		}`, w.Body.String())
	})
}

func TestHealthHandler_adminMigrationsMissing(t *testing.T) {
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	w := httptest.NewRecorder()
	newHealthRouter(t, dbConnectionPool).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{
		"status": "fail",
		"version": "x.y.z",
		"service_id": "crm-platform",
		"release_id": "1234567890abcdef",
		"services": {"database": "pass", "tenant_directory": "fail"}
	}`, w.Body.String())
}
