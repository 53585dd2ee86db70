package cmd

import (
	"context"
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/tenantcrm/crm-platform-backend/cmd/utils"
	di "github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.Serve(ctx, opts, httpServer); err != nil {
		log.Ctx(ctx).Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.MetricsServe(opts, httpServer); err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	metricsServeOpts := serve.MetricsServeOptions{}
	emailOpts := message.MessengerOptions{}
	workflowOpts := cmdUtils.WorkflowOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		},
		{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    string(monitor.MetricTypePrometheus),
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to submit demo requests, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			FlagDefault:    "http://localhost:3000",
			Required:       true,
		},
		{
			Name:      "admin-account",
			Usage:     "The account name administrators authenticate with, through HTTP basic auth",
			OptType:   types.String,
			ConfigKey: &serveOpts.AdminAccount,
			Required:  true,
		},
		{
			Name:      "admin-api-key",
			Usage:     "The API key administrators authenticate with, through HTTP basic auth",
			OptType:   types.String,
			ConfigKey: &serveOpts.AdminAPIKey,
			Required:  true,
		},
		{
			Name:        "intake-rate-limit",
			Usage:       "How many demo requests a client IP can submit per minute. Zero disables the limit.",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.IntakeRateLimit,
			FlagDefault: 10,
			Required:    false,
		},
		{
			Name:           "domain-cache-ttl",
			Usage:          `How long a resolved tenant domain is cached, e.g. "1m".`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDuration,
			ConfigKey:      &serveOpts.DomainCacheTTL,
			FlagDefault:    "1m",
			Required:       false,
		},
	}
	configOpts = append(configOpts, cmdUtils.EmailConfigOptions(&emailOpts)...)
	configOpts = append(configOpts, cmdUtils.WorkflowConfigOptions(&workflowOpts)...)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the CRM Platform API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)

			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			err := monitorService.Start(monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			})
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.Version = globalOptions.Version
			serveOpts.DatabaseDSN = globalOptions.DatabaseURL
			serveOpts.DBMaxOpenConns = globalOptions.DBMaxOpenConns
			serveOpts.DBMaxIdleConns = globalOptions.DBMaxIdleConns
			serveOpts.DBConnMaxLifetime = globalOptions.DBConnMaxLifetime
			serveOpts.BaseDomain = globalOptions.BaseDomain
			serveOpts.MonitorService = monitorService
			serveOpts.ProductName = workflowOpts.ProductName
			serveOpts.StepTimeout = workflowOpts.StepTimeout
			serveOpts.NotificationTimeout = workflowOpts.NotificationTimeout

			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment

			emailOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			crashTrackerClient, err := di.NewCrashTracker(ctx, globalOptions.CrashTrackerOptions())
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			serveOpts.EmailMessengerClient, err = di.NewEmailClient(emailOpts)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating email client: %s", err.Error())
			}

			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(ctx, serveOpts, &serve.HTTPServer{})
		},
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
