package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/data"
	"github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/httperror"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/httphandler"
	"github.com/tenantcrm/crm-platform-backend/internal/serve/middleware"
	"github.com/tenantcrm/crm-platform-backend/internal/workflow"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const (
	ServiceID = "serve"
	// intakeRateLimitWindow is the window IntakeRateLimit applies to.
	intakeRateLimitWindow = time.Minute
)

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment string
	GitCommit   string
	Version     string
	Port        int
	DatabaseDSN string
	BaseDomain  string
	ProductName string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	CorsAllowedOrigins []string
	AdminAccount       string
	AdminAPIKey        string
	// IntakeRateLimit is the number of demo requests a client IP can submit per minute. Zero disables the limit.
	IntakeRateLimit int
	DomainCacheTTL  time.Duration

	StepTimeout         time.Duration
	NotificationTimeout time.Duration

	MonitorService       monitor.MonitorServiceInterface
	CrashTrackerClient   crashtracker.CrashTrackerClient
	EmailMessengerClient message.MessengerClient

	dbConnectionPool db.DBConnectionPool
	signupRequests   data.SignupRequestStore
	tenantManager    tenant.ManagerInterface
	domainResolver   tenant.DomainResolver
	processor        workflow.DemoRequestProcessor
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies(ctx context.Context) error {
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	dbConnectionPool, err := dependencyinjection.NewDBConnectionPool(ctx, dependencyinjection.DBConnectionPoolOptions{
		DatabaseURL:     opts.DatabaseDSN,
		MonitorService:  opts.MonitorService,
		MaxOpenConns:    opts.DBMaxOpenConns,
		MaxIdleConns:    opts.DBMaxIdleConns,
		ConnMaxLifetime: opts.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}
	opts.signupRequests = models.SignupRequests

	opts.tenantManager, err = dependencyinjection.NewTenantManager(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating tenant manager: %w", err)
	}

	opts.domainResolver, err = dependencyinjection.NewDomainResolver(dbConnectionPool, opts.DomainCacheTTL)
	if err != nil {
		return fmt.Errorf("error creating domain resolver: %w", err)
	}

	opts.processor, err = dependencyinjection.NewDemoRequestProcessor(dependencyinjection.DemoRequestProcessorOptions{
		DBConnectionPool:     dbConnectionPool,
		BaseDomain:           opts.BaseDomain,
		EmailMessengerClient: opts.EmailMessengerClient,
		CrashTrackerClient:   opts.CrashTrackerClient,
		MonitorService:       opts.MonitorService,
		ProductName:          opts.ProductName,
		StepTimeout:          opts.StepTimeout,
		NotificationTimeout:  opts.NotificationTimeout,
	})
	if err != nil {
		return fmt.Errorf("error creating demo request processor: %w", err)
	}

	return nil
}

func Serve(ctx context.Context, opts ServeOptions, httpServer HTTPServerInterface) error {
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	defer opts.CrashTrackerClient.Recover()

	if err := opts.SetupDependencies(ctx); err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		// processing a demo request runs several bounded steps back to back
		WriteTimeout: time.Minute * 5,
		IdleTimeout:  time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting CRM Platform Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			dependencyinjection.DeleteAndCloseInstanceByKey(ctx, dependencyinjection.DBConnectionPoolInstanceName)
			log.Info("Stopping CRM Platform Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	if o.MonitorService != nil {
		mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	}

	mux.Get("/health", httphandler.HealthHandler{
		Version:          o.Version,
		ServiceID:        ServiceID,
		ReleaseID:        o.GitCommit,
		DBConnectionPool: o.dbConnectionPool,
	}.ServeHTTP)

	demoRequestsHandler := httphandler.DemoRequestsHandler{
		Processor:      o.processor,
		SignupRequests: o.signupRequests,
	}

	// Public intake form
	mux.Group(func(r chi.Router) {
		r.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
		r.Use(middleware.RateLimitMiddleware(o.IntakeRateLimit, intakeRateLimitWindow))
		r.Options("/demo-requests", func(w http.ResponseWriter, _ *http.Request) {})
		r.Post("/demo-requests", demoRequestsHandler.Post)
	})

	// Routes served on a tenant's own domain
	mux.Group(func(r chi.Router) {
		r.Use(middleware.TenantResolutionMiddleware(o.domainResolver))
		r.Use(middleware.EnsureTenantMiddleware)
		r.Get("/tenant", httphandler.CurrentTenantHandler{}.Get)
	})

	// Administration
	mux.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuthMiddleware(o.AdminAccount, o.AdminAPIKey))

		r.Get("/demo-requests", demoRequestsHandler.GetAll)
		r.Post("/demo-requests/bulk-process", demoRequestsHandler.BulkProcess)
		r.Get("/demo-requests/{id}", demoRequestsHandler.GetByID)
		r.Post("/demo-requests/{id}/process", demoRequestsHandler.Process)
		r.Post("/demo-requests/{id}/resume", demoRequestsHandler.Resume)
		r.Post("/demo-requests/{id}/reject", demoRequestsHandler.Reject)

		tenantsHandler := httphandler.TenantsHandler{Manager: o.tenantManager}
		r.Get("/tenants", tenantsHandler.GetAll)
		r.Get("/tenants/{id}", tenantsHandler.GetByID)
	})

	return mux
}
