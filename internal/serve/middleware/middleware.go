package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/httperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// the client is gone, let net/http handle it
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler records the duration of every request, labeled by route pattern, method and status.
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			labels := monitor.HTTPRequestLabels{
				Status: strconv.Itoa(mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}
			if err := monitorService.MonitorHTTPRequestDuration(time.Since(then), labels); err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		c := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		})

		return c.Handler(next)
	}
}

// LoggingMiddleware adds the request id and path to the context logger and logs the start and end of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

		ctx := req.Context()
		reqID := chimiddleware.GetReqID(ctx)
		ctx = log.Set(ctx, log.Ctx(ctx).WithFields(log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    reqID,
		}))
		ctx = crashtracker.WithTags(ctx, map[string]string{"request_id": reqID})
		req = req.WithContext(ctx)

		log.Ctx(ctx).WithFields(log.F{
			"subsys":    "http",
			"ip":        req.RemoteAddr,
			"host":      req.Host,
			"useragent": req.Header.Get("User-Agent"),
		}).Info("starting request")

		started := time.Now()
		next.ServeHTTP(mw, req)

		l := log.Ctx(ctx).WithFields(log.F{
			"subsys":   "http",
			"status":   mw.Status(),
			"bytes":    mw.BytesWritten(),
			"duration": time.Since(started),
		})
		if routeContext := chi.RouteContext(ctx); routeContext != nil {
			l = l.WithField("route", routeContext.RoutePattern())
		}
		l.Info("finished request")
	})
}

// BasicAuthMiddleware guards the administration API.
func BasicAuthMiddleware(adminAccount, adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if adminAccount == "" || adminAPIKey == "" {
				httperror.InternalError(ctx, "Admin account and API key are not set", nil, nil).Render(rw)
				return
			}

			account, apiKey, ok := req.BasicAuth()
			if !ok {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			accountMatches := subtle.ConstantTimeCompare([]byte(account), []byte(adminAccount)) == 1
			keyMatches := subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminAPIKey)) == 1
			if !accountMatches || !keyMatches {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx = log.Set(ctx, log.Ctx(ctx).WithField("admin_account", adminAccount))
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware allows requestLimit requests per window and client IP. A non-positive limit disables it.
func RateLimitMiddleware(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	if requestLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(rw http.ResponseWriter, req *http.Request) {
			log.Ctx(req.Context()).Warnf("rate limit exceeded for %s", req.RemoteAddr)
			httperror.TooManyRequests("").Render(rw)
		}),
	)
}

// TenantResolutionMiddleware resolves the tenant owning the request host and stores it in the context. Requests for
// unknown hosts pass through without a tenant; EnsureTenantMiddleware rejects them where a tenant is required.
func TenantResolutionMiddleware(resolver tenant.DomainResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			t, err := resolver.ResolveTenantByDomain(ctx, req.Host)
			if err != nil {
				if !errors.Is(err, tenant.ErrTenantDoesNotExist) {
					log.Ctx(ctx).Errorf("resolving tenant for host %q: %v", req.Host, err)
				}
				next.ServeHTTP(rw, req)
				return
			}

			ctx = tenant.SetTenantInContext(ctx, t)
			ctx = log.Set(ctx, log.Ctx(ctx).WithFields(log.F{
				"tenant_name": t.Name,
				"tenant_id":   t.ID,
			}))
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// EnsureTenantMiddleware is a middleware that ensures the tenant is in the request context.
func EnsureTenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if _, err := tenant.GetTenantFromContext(req.Context()); err != nil {
			httperror.BadRequest("Tenant not found for this host.", err, nil).WithErrorCode(httperror.Code400_1).Render(rw)
			return
		}

		next.ServeHTTP(rw, req)
	})
}
