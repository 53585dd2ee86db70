package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

func Test_RecoverHandler(t *testing.T) {
	buf := new(strings.Builder)
	log.DefaultLogger.SetOutput(buf)
	log.DefaultLogger.SetLevel(logrus.TraceLevel)

	r := chi.NewRouter()
	r.Use(RecoverHandler)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{
		"error": "An internal error occurred while processing this request.",
		"error_code": "500_0"
	}`, rr.Body.String())
	assert.Contains(t, buf.String(), "panic: test panic")
}

func Test_RecoverHandler_doesNotRecoverFromErrAbortHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RecoverHandler)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	require.Panics(t, func() {
		req, err := http.NewRequest(http.MethodGet, "/", nil)
		require.NoError(t, err)
		r.ServeHTTP(httptest.NewRecorder(), req)
	})
}

func Test_MetricsRequestHandler(t *testing.T) {
	mMonitorService := monitor.NewMockMonitorService(t)

	r := chi.NewRouter()
	r.Use(MetricsRequestHandler(mMonitorService))
	r.Get("/demo-requests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name       string
		method     string
		path       string
		wantLabels monitor.HTTPRequestLabels
	}{
		{
			name:       "matched route is labeled with its pattern",
			method:     http.MethodGet,
			path:       "/demo-requests/7",
			wantLabels: monitor.HTTPRequestLabels{Status: "200", Route: "/demo-requests/{id}", Method: http.MethodGet},
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/invalid-route",
			wantLabels: monitor.HTTPRequestLabels{Status: "404", Route: "undefined", Method: http.MethodGet},
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			path:       "/demo-requests/7",
			wantLabels: monitor.HTTPRequestLabels{Status: "405", Route: "undefined", Method: http.MethodPost},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mMonitorService.
				On("MonitorHTTPRequestDuration", mock.AnythingOfType("time.Duration"), tc.wantLabels).
				Return(nil).
				Once()

			req, err := http.NewRequest(tc.method, tc.path, nil)
			require.NoError(t, err)
			r.ServeHTTP(httptest.NewRecorder(), req)
		})
	}
}

func Test_BasicAuthMiddleware(t *testing.T) {
	newRouter := func(account, apiKey string) *chi.Mux {
		r := chi.NewRouter()
		r.With(BasicAuthMiddleware(account, apiKey)).Get("/tenants", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	}

	testCases := []struct {
		name            string
		account, apiKey string
		setAuth         func(req *http.Request)
		wantStatus      int
	}{
		{
			name:       "credentials not configured",
			setAuth:    func(req *http.Request) { req.SetBasicAuth("admin", "secret") },
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "missing header",
			account:    "admin",
			apiKey:     "secret",
			setAuth:    func(req *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong account",
			account:    "admin",
			apiKey:     "secret",
			setAuth:    func(req *http.Request) { req.SetBasicAuth("root", "secret") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			account:    "admin",
			apiKey:     "secret",
			setAuth:    func(req *http.Request) { req.SetBasicAuth("admin", "guess") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid credentials",
			account:    "admin",
			apiKey:     "secret",
			setAuth:    func(req *http.Request) { req.SetBasicAuth("admin", "secret") },
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/tenants", nil)
			require.NoError(t, err)
			tc.setAuth(req)

			rr := httptest.NewRecorder()
			newRouter(tc.account, tc.apiKey).ServeHTTP(rr, req)
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func Test_RateLimitMiddleware(t *testing.T) {
	t.Run("rejects requests above the limit", func(t *testing.T) {
		r := chi.NewRouter()
		r.Use(RateLimitMiddleware(2, time.Minute))
		r.Post("/demo-requests", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		codes := make([]int, 0, 3)
		for range 3 {
			req, err := http.NewRequest(http.MethodPost, "/demo-requests", nil)
			require.NoError(t, err)
			req.RemoteAddr = "203.0.113.7:5555"
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}
		assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	})

	t.Run("non-positive limit disables it", func(t *testing.T) {
		handler := RateLimitMiddleware(0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		for range 5 {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/demo-requests", nil))
			assert.Equal(t, http.StatusCreated, rr.Code)
		}
	})
}

func Test_TenantResolutionMiddleware(t *testing.T) {
	acme := &tenant.Tenant{ID: 1, Name: "Acme Co", SchemaName: "acme_co"}

	echoTenant := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := tenant.GetTenantFromContext(r.Context())
		if err != nil {
			_, _ = w.Write([]byte("no tenant"))
			return
		}
		_, _ = w.Write([]byte(t.SchemaName))
	})

	testCases := []struct {
		name     string
		host     string
		setup    func(m *tenant.TenantManagerMock)
		wantBody string
	}{
		{
			name: "known host",
			host: "acme-co.crm.test",
			setup: func(m *tenant.TenantManagerMock) {
				m.On("ResolveTenantByDomain", mock.Anything, "acme-co.crm.test").Return(acme, nil).Once()
			},
			wantBody: "acme_co",
		},
		{
			name: "unknown host",
			host: "nobody.crm.test",
			setup: func(m *tenant.TenantManagerMock) {
				m.On("ResolveTenantByDomain", mock.Anything, "nobody.crm.test").
					Return(nil, tenant.ErrTenantDoesNotExist).Once()
			},
			wantBody: "no tenant",
		},
		{
			name: "resolver failure",
			host: "acme-co.crm.test",
			setup: func(m *tenant.TenantManagerMock) {
				m.On("ResolveTenantByDomain", mock.Anything, "acme-co.crm.test").
					Return(nil, errors.New("connection refused")).Once()
			},
			wantBody: "no tenant",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := tenant.NewTenantManagerMock(t)
			tc.setup(m)

			req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
			req.Host = tc.host
			rr := httptest.NewRecorder()
			TenantResolutionMiddleware(m)(echoTenant).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.wantBody, rr.Body.String())
		})
	}
}

func Test_EnsureTenantMiddleware(t *testing.T) {
	handler := EnsureTenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("without tenant", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tenant", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "Tenant not found for this host.", "error_code": "400_1"}`, rr.Body.String())
	})

	t.Run("with tenant", func(t *testing.T) {
		ctx := tenant.SetTenantInContext(context.Background(), &tenant.Tenant{ID: 1})
		req := httptest.NewRequest(http.MethodGet, "/tenant", nil).WithContext(ctx)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func Test_LoggingMiddleware(t *testing.T) {
	buf := new(strings.Builder)
	log.DefaultLogger.SetOutput(buf)
	log.DefaultLogger.SetLevel(logrus.InfoLevel)

	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Contains(t, buf.String(), "starting request")
	assert.Contains(t, buf.String(), "finished request")
	assert.Contains(t, buf.String(), "route=/health")
}
