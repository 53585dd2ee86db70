package dependencyinjection

import (
	"fmt"
	"time"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/data"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/notification"
	"github.com/tenantcrm/crm-platform-backend/internal/workflow"
)

const DemoRequestProcessorInstanceName = "demo_request_processor_instance"

type DemoRequestProcessorOptions struct {
	DBConnectionPool     db.DBConnectionPool
	BaseDomain           string
	EmailMessengerClient message.MessengerClient
	CrashTrackerClient   crashtracker.CrashTrackerClient
	// MonitorService is optional.
	MonitorService      monitor.MonitorServiceInterface
	ProductName         string
	BcryptCost          int
	StepTimeout         time.Duration
	NotificationTimeout time.Duration
}

// NewDemoRequestProcessor builds the demo request workflow with its default collaborators.
func NewDemoRequestProcessor(opts DemoRequestProcessorOptions) (*workflow.Orchestrator, error) {
	if opts.EmailMessengerClient == nil {
		return nil, fmt.Errorf("email messenger client cannot be nil")
	}

	tenantManager, err := NewTenantManager(opts.DBConnectionPool)
	if err != nil {
		return nil, err
	}
	provisioningManager, err := NewProvisioningManager(ProvisioningManagerOptions{
		DBConnectionPool: opts.DBConnectionPool,
		BaseDomain:       opts.BaseDomain,
	})
	if err != nil {
		return nil, err
	}

	return getOrCreate(DemoRequestProcessorInstanceName, func() (*workflow.Orchestrator, error) {
		models, err := data.NewModels(opts.DBConnectionPool)
		if err != nil {
			return nil, fmt.Errorf("creating models: %w", err)
		}

		runner, err := schemactx.NewRunner(opts.DBConnectionPool)
		if err != nil {
			return nil, fmt.Errorf("creating schema runner: %w", err)
		}

		notifierOpts := []notification.EmailNotifierOption{}
		if opts.ProductName != "" {
			notifierOpts = append(notifierOpts, notification.WithProductName(opts.ProductName))
		}
		notifier, err := notification.NewEmailNotifier(opts.EmailMessengerClient, tenantManager, notifierOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating welcome notifier: %w", err)
		}

		orchestrator, err := workflow.NewOrchestrator(workflow.OrchestratorOptions{
			SignupRequests:      models.SignupRequests,
			Provisioner:         provisioningManager,
			TenantManager:       tenantManager,
			SchemaRunner:        runner,
			UserManager:         auth.NewManager(auth.WithPasswordEncrypter(auth.NewBcryptPasswordEncrypter(opts.BcryptCost))),
			Notifier:            notifier,
			CrashTracker:        opts.CrashTrackerClient,
			MonitorService:      opts.MonitorService,
			StepTimeout:         opts.StepTimeout,
			NotificationTimeout: opts.NotificationTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating demo request orchestrator: %w", err)
		}
		return orchestrator, nil
	})
}
