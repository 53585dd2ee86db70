package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cmdUtils "github.com/tenantcrm/crm-platform-backend/cmd/utils"
	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	di "github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/serve"
)

type mockServer struct {
	wg sync.WaitGroup
	mock.Mock
}

var _ ServerServiceInterface = (*mockServer)(nil)

func (m *mockServer) StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	m.Called(ctx, opts, httpServer)
	m.wg.Wait()
}

func (m *mockServer) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	m.Called(opts, httpServer)
	m.wg.Done()
}

// replaceCommand swaps the root's subcommand named like replacement, so tests can inject mocked services.
func replaceCommand(t *testing.T, rootCmd *cobra.Command, replacement *cobra.Command) {
	t.Helper()

	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == replacement.Name() {
			rootCmd.RemoveCommand(cmd)
			rootCmd.AddCommand(replacement)
			return
		}
	}
	require.Failf(t, "command not found", "%s is not registered in the root command", replacement.Name())
}

func Test_serve_help(t *testing.T) {
	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
	rootCmd.SetArgs([]string{"serve", "--help"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), "crm-platform serve [flags]")
	assert.Contains(t, out.String(), "--admin-api-key")
	assert.Contains(t, out.String(), "--email-sender-type")
}

func Test_serve(t *testing.T) {
	cmdUtils.ClearTestEnvironment(t)
	defer di.ClearInstancesTestHelper(t)

	ctx := context.Background()

	crashTrackerClient, err := di.NewCrashTracker(ctx, crashtracker.CrashTrackerOptions{
		CrashTrackerType: crashtracker.CrashTrackerTypeDryRun,
		Environment:      "test",
		GitCommit:        "1234567890abcdef",
	})
	require.NoError(t, err)

	emailClient, err := di.NewEmailClient(message.MessengerOptions{MessengerType: message.MessengerTypeDryRun, Environment: "test"})
	require.NoError(t, err)

	mMonitorService := monitor.NewMockMonitorService(t)
	mMonitorService.
		On("Start", monitor.MetricOptions{MetricType: monitor.MetricTypePrometheus, Environment: "test"}).
		Return(nil).
		Once()

	wantServeOpts := serve.ServeOptions{
		Environment:          "test",
		GitCommit:            "1234567890abcdef",
		Version:              "x.y.z",
		Port:                 8000,
		DatabaseDSN:          "postgres://localhost:5432/crm_test?sslmode=disable",
		BaseDomain:           "crm.test",
		ProductName:          "Acme CRM",
		DBMaxOpenConns:       8,
		DBMaxIdleConns:       2,
		DBConnMaxLifetime:    5 * time.Minute,
		CorsAllowedOrigins:   []string{"https://www.crm.test"},
		AdminAccount:         "admin",
		AdminAPIKey:          "secret",
		IntakeRateLimit:      10,
		DomainCacheTTL:       time.Minute,
		StepTimeout:          2 * time.Minute,
		NotificationTimeout:  15 * time.Second,
		MonitorService:       mMonitorService,
		CrashTrackerClient:   crashTrackerClient,
		EmailMessengerClient: emailClient,
	}
	wantMetricsOpts := serve.MetricsServeOptions{
		Port:           8002,
		Environment:    "test",
		MonitorService: mMonitorService,
		MetricType:     monitor.MetricTypePrometheus,
	}

	mServer := &mockServer{}
	mServer.On("StartMetricsServe", wantMetricsOpts, mock.AnythingOfType("*serve.HTTPServer")).Once()
	mServer.On("StartServe", mock.Anything, wantServeOpts, mock.AnythingOfType("*serve.HTTPServer")).Once()
	mServer.wg.Add(1)
	defer mServer.AssertExpectations(t)

	rootCmd := SetupCLI("x.y.z", "1234567890abcdef")
	replaceCommand(t, rootCmd, (&ServeCommand{}).Command(mServer, mMonitorService))
	rootCmd.SetArgs([]string{
		"--environment", "test",
		"--database-url", "postgres://localhost:5432/crm_test?sslmode=disable",
		"--base-domain", "crm.test",
		"--db-max-open-conns", "8",
		"serve",
		"--cors-allowed-origins", "https://www.crm.test",
		"--admin-account", "admin",
		"--product-name", "Acme CRM",
		"--notification-timeout", "15s",
	})
	t.Setenv("ADMIN_API_KEY", "secret")

	err = rootCmd.Execute()
	require.NoError(t, err)
}
