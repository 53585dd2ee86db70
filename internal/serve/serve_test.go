package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/db/dbtest"
	"github.com/tenantcrm/crm-platform-backend/db/sqlmockdb"
	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/data"
	"github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/workflow"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type mockHTTPServer struct {
	mock.Mock
}

func (m *mockHTTPServer) Run(conf supporthttp.Config) {
	m.Called(conf)
}

func newMockHTTPServer(t *testing.T) *mockHTTPServer {
	t.Helper()

	m := &mockHTTPServer{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func Test_Serve(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	defer dependencyinjection.ClearInstancesTestHelper(t)

	ctx := context.Background()

	mCrashTrackerClient := crashtracker.NewMockCrashTrackerClient(t)
	mCrashTrackerClient.On("FlushEvents", 2*time.Second).Return(false).Once()
	mCrashTrackerClient.On("Recover").Once()

	messengerClient, err := message.NewDryRunClient()
	require.NoError(t, err)

	opts := ServeOptions{
		Environment:          "test",
		GitCommit:            "1234567890abcdef",
		Version:              "x.y.z",
		Port:                 8000,
		DatabaseDSN:          dbt.DSN,
		BaseDomain:           "crm.test",
		ProductName:          "CRM",
		AdminAccount:         "admin",
		AdminAPIKey:          "secret",
		CrashTrackerClient:   mCrashTrackerClient,
		EmailMessengerClient: messengerClient,
	}

	mHTTPServer := newMockHTTPServer(t)
	mHTTPServer.On("Run", mock.AnythingOfType("http.Config")).Run(func(args mock.Arguments) {
		conf, ok := args.Get(0).(supporthttp.Config)
		require.True(t, ok, "should be of type supporthttp.Config")
		assert.Equal(t, ":8000", conf.ListenAddr)
		assert.Equal(t, time.Minute*3, conf.TCPKeepAlive)
		assert.Equal(t, time.Second*50, conf.ShutdownGracePeriod)
		assert.Equal(t, time.Second*5, conf.ReadTimeout)
		assert.Equal(t, time.Minute*5, conf.WriteTimeout)
		assert.Equal(t, time.Minute*2, conf.IdleTimeout)
		assert.Nil(t, conf.TLS)
		require.NotNil(t, conf.Handler)

		rr := httptest.NewRecorder()
		conf.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		conf.OnStopping()
	}).Once()

	err = Serve(ctx, opts, mHTTPServer)
	require.NoError(t, err)
}

func Test_Serve_dependencyError(t *testing.T) {
	defer dependencyinjection.ClearInstancesTestHelper(t)

	mCrashTrackerClient := crashtracker.NewMockCrashTrackerClient(t)
	mCrashTrackerClient.On("FlushEvents", 2*time.Second).Return(false).Once()
	mCrashTrackerClient.On("Recover").Once()

	opts := ServeOptions{
		DatabaseDSN:        "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		CrashTrackerClient: mCrashTrackerClient,
	}

	err := Serve(context.Background(), opts, newMockHTTPServer(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "error starting dependencies")
}

type testServer struct {
	handler   http.Handler
	sqlMock   sqlmock.Sqlmock
	processor *workflow.DemoRequestProcessorMock
	store     *data.SignupRequestStoreMock
	manager   *tenant.TenantManagerMock
}

func setupTestServer(t *testing.T) testServer {
	t.Helper()

	dbConnectionPool, sqlMock := sqlmockdb.New(t)
	s := testServer{
		sqlMock:   sqlMock,
		processor: workflow.NewDemoRequestProcessorMock(t),
		store:     data.NewSignupRequestStoreMock(t),
		manager:   tenant.NewTenantManagerMock(t),
	}

	opts := ServeOptions{
		Environment:        "test",
		GitCommit:          "1234567890abcdef",
		Version:            "x.y.z",
		CorsAllowedOrigins: []string{"https://www.crm.test"},
		AdminAccount:       "admin",
		AdminAPIKey:        "secret",
		IntakeRateLimit:    2,
		dbConnectionPool:   dbConnectionPool,
		signupRequests:     s.store,
		tenantManager:      s.manager,
		domainResolver:     s.manager,
		processor:          s.processor,
	}
	s.handler = handleHTTP(opts)
	return s
}

func (s testServer) do(t *testing.T, method, path, body string, withAuth bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if withAuth {
		req.SetBasicAuth("admin", "secret")
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func Test_handleHTTP_health(t *testing.T) {
	s := setupTestServer(t)
	expectTenantDirectory(s.sqlMock)

	rr := s.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"status": "pass",
		"version": "x.y.z",
		"service_id": "serve",
		"release_id": "1234567890abcdef",
		"services": {"database": "pass", "tenant_directory": "pass"}
	}`, rr.Body.String())
}

func expectTenantDirectory(sqlMock sqlmock.Sqlmock) {
	sqlMock.ExpectQuery(`SELECT to_regclass\(\$1\) IS NOT NULL`).
		WithArgs("public.tenants").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
}

func Test_handleHTTP_healthReportsMetrics(t *testing.T) {
	dbConnectionPool, sqlMock := sqlmockdb.New(t)
	expectTenantDirectory(sqlMock)
	mMonitorService := monitor.NewMockMonitorService(t)
	mMonitorService.
		On("MonitorHTTPRequestDuration", mock.AnythingOfType("time.Duration"), monitor.HTTPRequestLabels{
			Status: "200",
			Route:  "/health",
			Method: http.MethodGet,
		}).
		Return(nil).
		Once()

	handler := handleHTTP(ServeOptions{MonitorService: mMonitorService, dbConnectionPool: dbConnectionPool})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_handleHTTP_adminEndpointsRequireAuth(t *testing.T) {
	s := setupTestServer(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/demo-requests"},
		{http.MethodGet, "/demo-requests/1"},
		{http.MethodPost, "/demo-requests/bulk-process"},
		{http.MethodPost, "/demo-requests/1/process"},
		{http.MethodPost, "/demo-requests/1/resume"},
		{http.MethodPost, "/demo-requests/1/reject"},
		{http.MethodGet, "/tenants"},
		{http.MethodGet, "/tenants/1"},
	}
	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			rr := s.do(t, endpoint.method, endpoint.path, "", false)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func Test_handleHTTP_adminEndpoints(t *testing.T) {
	s := setupTestServer(t)

	t.Run("list pending demo requests", func(t *testing.T) {
		s.processor.
			On("ListPendingDemoRequests", mock.Anything).
			Return([]data.SignupRequest{{ID: 1, CompanyName: "Acme", Status: data.PendingSignupRequestStatus}}, nil).
			Once()

		rr := s.do(t, http.MethodGet, "/demo-requests", "", true)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Acme")
	})

	t.Run("list tenants", func(t *testing.T) {
		s.manager.
			On("GetAllTenants", mock.Anything).
			Return([]tenant.Tenant{{ID: 3, Name: "acme", SchemaName: "tenant_acme"}}, nil).
			Once()

		rr := s.do(t, http.MethodGet, "/tenants", "", true)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "tenant_acme")
	})
}

func Test_handleHTTP_publicIntake(t *testing.T) {
	s := setupTestServer(t)

	body := `{
		"company_name": "Acme Co",
		"contact_first_name": "Ada",
		"contact_last_name": "Lovelace",
		"contact_email": "ada@example.com"
	}`
	s.store.
		On("Insert", mock.Anything, mock.AnythingOfType("data.SignupRequestInsert")).
		Return(&data.SignupRequest{ID: 7, Status: data.PendingSignupRequestStatus, ContactEmail: "ada@example.com"}, nil).
		Twice()

	rr := s.do(t, http.MethodPost, "/demo-requests", body, false)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id": 7, "status": "pending"}`, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/demo-requests", body, false)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(t, http.MethodPost, "/demo-requests", body, false)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func Test_handleHTTP_tenantEndpoint(t *testing.T) {
	s := setupTestServer(t)

	t.Run("unknown host", func(t *testing.T) {
		s.manager.
			On("ResolveTenantByDomain", mock.Anything, "unknown.crm.test").
			Return(nil, tenant.ErrTenantDoesNotExist).
			Once()

		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Host = "unknown.crm.test"
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "Tenant not found for this host.", "error_code": "400_1"}`, rr.Body.String())
	})

	t.Run("resolved host", func(t *testing.T) {
		s.manager.
			On("ResolveTenantByDomain", mock.Anything, "acme.crm.test").
			Return(&tenant.Tenant{ID: 3, Name: "acme", SchemaName: "tenant_acme", IsActive: true}, nil).
			Once()

		req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
		req.Host = "acme.crm.test"
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "tenant_acme")
	})
}
