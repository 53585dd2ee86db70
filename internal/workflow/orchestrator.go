// Package workflow turns demo requests into running tenants: the tenant with its schema and domain, its first
// administrator and the welcome email, tracking the request's status along the way.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/data"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/notification"
	"github.com/tenantcrm/crm-platform-backend/internal/provisioning"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const (
	DefaultStepTimeout         = 2 * time.Minute
	DefaultNotificationTimeout = 30 * time.Second
)

var (
	ErrDemoRequestNotPending = apperror.State("demo request is not pending")
	ErrDemoRequestNotFailed  = apperror.State("demo request has not failed")
)

// SchemaRunner runs fn scoped to a tenant schema.
type SchemaRunner interface {
	WithSchema(ctx context.Context, schemaName string, fn schemactx.ScopedFunc) error
}

var _ SchemaRunner = (*schemactx.Runner)(nil)

// DemoRequestProcessor is the demo request workflow as seen by the CLI and the admin API.
type DemoRequestProcessor interface {
	ProcessDemoRequest(ctx context.Context, id int64) (*WorkflowResult, error)
	ResumeProvisioning(ctx context.Context, id int64) (*WorkflowResult, error)
	BulkProcessDemoRequests(ctx context.Context, ids []int64) *BulkResult
	ListPendingDemoRequests(ctx context.Context) ([]data.SignupRequest, error)
	RejectDemoRequest(ctx context.Context, id int64, reason string) (*data.SignupRequest, error)
}

type Orchestrator struct {
	signupRequests      data.SignupRequestStore
	provisioner         provisioning.TenantProvisioner
	tenantManager       tenant.ManagerInterface
	schemaRunner        SchemaRunner
	userManager         auth.UserManager
	notifier            notification.WelcomeNotifier
	crashTracker        crashtracker.CrashTrackerClient
	monitorService      monitor.MonitorServiceInterface
	stepTimeout         time.Duration
	notificationTimeout time.Duration
}

type OrchestratorOptions struct {
	SignupRequests data.SignupRequestStore
	Provisioner    provisioning.TenantProvisioner
	TenantManager  tenant.ManagerInterface
	SchemaRunner   SchemaRunner
	UserManager    auth.UserManager
	Notifier       notification.WelcomeNotifier
	CrashTracker   crashtracker.CrashTrackerClient
	// MonitorService is optional.
	MonitorService      monitor.MonitorServiceInterface
	StepTimeout         time.Duration
	NotificationTimeout time.Duration
}

func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.SignupRequests == nil {
		return nil, fmt.Errorf("signup request store cannot be nil")
	}
	if opts.Provisioner == nil {
		return nil, fmt.Errorf("tenant provisioner cannot be nil")
	}
	if opts.TenantManager == nil {
		return nil, fmt.Errorf("tenant manager cannot be nil")
	}
	if opts.SchemaRunner == nil {
		return nil, fmt.Errorf("schema runner cannot be nil")
	}
	if opts.UserManager == nil {
		return nil, fmt.Errorf("user manager cannot be nil")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("welcome notifier cannot be nil")
	}
	if opts.CrashTracker == nil {
		return nil, fmt.Errorf("crash tracker client cannot be nil")
	}
	if opts.StepTimeout < 0 || opts.NotificationTimeout < 0 {
		return nil, fmt.Errorf("timeouts cannot be negative")
	}

	o := &Orchestrator{
		signupRequests:      opts.SignupRequests,
		provisioner:         opts.Provisioner,
		tenantManager:       opts.TenantManager,
		schemaRunner:        opts.SchemaRunner,
		userManager:         opts.UserManager,
		notifier:            opts.Notifier,
		crashTracker:        opts.CrashTracker,
		monitorService:      opts.MonitorService,
		stepTimeout:         opts.StepTimeout,
		notificationTimeout: opts.NotificationTimeout,
	}
	if o.stepTimeout == 0 {
		o.stepTimeout = DefaultStepTimeout
	}
	if o.notificationTimeout == 0 {
		o.notificationTimeout = DefaultNotificationTimeout
	}
	return o, nil
}

var _ DemoRequestProcessor = (*Orchestrator)(nil)

// ProcessDemoRequest provisions a tenant for a pending demo request. The request is moved to processing before any
// other work happens, so concurrent calls for the same id provision at most once. It always returns a result; the
// error is non-nil exactly when the result is not successful.
func (o *Orchestrator) ProcessDemoRequest(ctx context.Context, id int64) (*WorkflowResult, error) {
	ctx = withRequestFields(ctx, id)
	result := &WorkflowResult{RequestID: id, Steps: []StepResult{}}

	sr, err := o.signupRequests.Get(ctx, id)
	if err != nil {
		return rejectResult(result, err)
	}
	if sr.Status != data.PendingSignupRequestStatus {
		return rejectResult(result, fmt.Errorf("%w: demo request %d is %s", ErrDemoRequestNotPending, id, sr.Status))
	}

	sr, err = o.signupRequests.CompareAndSwapStatus(ctx, id, data.PendingSignupRequestStatus, data.ProcessingSignupRequestStatus, "")
	if err != nil {
		if errors.Is(err, data.ErrSignupRequestStatusConflict) {
			err = fmt.Errorf("%w: %w", ErrDemoRequestNotPending, err)
		}
		return rejectResult(result, err)
	}

	log.Ctx(ctx).Infof("processing demo request from %s", sr.CompanyName)
	return o.run(ctx, sr, result, nil)
}

// ResumeProvisioning processes a failed demo request again. When a tenant was already provisioned for it, the tenant
// is reused and only the remaining steps run.
func (o *Orchestrator) ResumeProvisioning(ctx context.Context, id int64) (*WorkflowResult, error) {
	ctx = withRequestFields(ctx, id)
	result := &WorkflowResult{RequestID: id, Steps: []StepResult{}}

	sr, err := o.signupRequests.Get(ctx, id)
	if err != nil {
		return rejectResult(result, err)
	}
	if sr.Status != data.FailedSignupRequestStatus {
		return rejectResult(result, fmt.Errorf("%w: demo request %d is %s", ErrDemoRequestNotFailed, id, sr.Status))
	}

	sr, err = o.signupRequests.CompareAndSwapStatus(ctx, id, data.FailedSignupRequestStatus, data.ProcessingSignupRequestStatus, "Provisioning resumed.")
	if err != nil {
		if errors.Is(err, data.ErrSignupRequestStatusConflict) {
			err = fmt.Errorf("%w: %w", ErrDemoRequestNotFailed, err)
		}
		return rejectResult(result, err)
	}

	var tnt *tenant.Tenant
	if sr.TenantID != nil {
		tnt, err = o.tenantManager.GetTenantByID(ctx, *sr.TenantID)
		if err != nil {
			return o.fail(ctx, sr, result, StepCreateTenant, fmt.Errorf("loading the tenant to resume: %w", err))
		}
		log.Ctx(ctx).Infof("resuming provisioning of tenant %s", tnt.SchemaName)
	}

	return o.run(ctx, sr, result, tnt)
}

// run executes the steps on a request already in processing. A nil tnt means the tenant still has to be created.
func (o *Orchestrator) run(ctx context.Context, sr *data.SignupRequest, result *WorkflowResult, tnt *tenant.Tenant) (*WorkflowResult, error) {
	if tnt == nil {
		start := time.Now()
		created, err := o.createTenant(ctx, sr)
		o.observeStep(ctx, StepCreateTenant, err, time.Since(start))
		if err != nil {
			result.addStep(StepCreateTenant, err, nil)
			return o.fail(ctx, sr, result, StepCreateTenant, err)
		}
		tnt = created.Tenant
		result.Domain = created.Domain
		result.PermissionsWarning = created.PermissionsWarning
		o.countTenantProvisioned(ctx)
		result.addStep(StepCreateTenant, nil, map[string]any{
			"tenant_id":   tnt.ID,
			"schema_name": tnt.SchemaName,
			"domain":      created.Domain.Domain,
		})
	} else {
		domain, err := o.tenantManager.GetPrimaryDomain(ctx, tnt.ID)
		if err != nil {
			log.Ctx(ctx).Warnf("getting the primary domain of tenant %s: %v", tnt.SchemaName, err)
		}
		result.Domain = domain
		result.addStep(StepCreateTenant, nil, map[string]any{"tenant_id": tnt.ID, "schema_name": tnt.SchemaName, "reused": true})
	}
	result.Tenant = tnt
	ctx = tenant.SetTenantInContext(ctx, tnt)

	start := time.Now()
	user, password, err := o.createAdminUser(ctx, sr, tnt)
	o.observeStep(ctx, StepCreateAdminUser, err, time.Since(start))
	if err != nil {
		result.addStep(StepCreateAdminUser, err, nil)
		return o.fail(ctx, sr, result, StepCreateAdminUser, err)
	}
	result.AdminUser = user
	result.Password = password
	result.addStep(StepCreateAdminUser, nil, map[string]any{"user_id": user.ID, "email": user.Email})

	start = time.Now()
	err = o.sendWelcomeEmail(ctx, user, tnt, password)
	o.observeStep(ctx, StepSendWelcomeEmail, err, time.Since(start))
	result.EmailSent = err == nil
	result.addStep(StepSendWelcomeEmail, err, nil)
	if err != nil {
		log.Ctx(ctx).Warnf("welcome email to %s was not sent: %v", utils.TruncateString(user.Email, 3), err)
	}

	note := approvalNote(tnt, user, result.EmailSent)
	if _, err = o.signupRequests.Finalize(context.WithoutCancel(ctx), sr.ID, data.ApprovedSignupRequestStatus, &tnt.ID, note); err != nil {
		err = fmt.Errorf("approving demo request %d: %w", sr.ID, err)
		o.crashTracker.LogAndReportErrors(ctx, err, "")

		failNote := fmt.Sprintf("Failed at approval: %v (tenant %d was kept, resume to finish provisioning)", err, tnt.ID)
		if _, finalizeErr := o.signupRequests.Finalize(context.WithoutCancel(ctx), sr.ID, data.FailedSignupRequestStatus, &tnt.ID, failNote); finalizeErr != nil {
			finalizeErr = fmt.Errorf("marking demo request %d as failed: %w", sr.ID, finalizeErr)
			o.crashTracker.LogAndReportErrors(ctx, finalizeErr, "")
			err = errors.Join(err, finalizeErr)
		}
		result.Message = err.Error()
		o.countProcessed(ctx, data.FailedSignupRequestStatus)
		return result, err
	}

	result.Success = true
	result.Message = note
	o.countProcessed(ctx, data.ApprovedSignupRequestStatus)
	log.Ctx(ctx).Infof("demo request approved, tenant %s is ready", tnt.SchemaName)

	return result, nil
}

func (o *Orchestrator) createTenant(ctx context.Context, sr *data.SignupRequest) (*provisioning.Result, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	created, err := o.provisioner.CreateTenantWithSetup(stepCtx, provisioning.TenantSetup{
		Name:         sr.CompanyName,
		ContactEmail: sr.ContactEmail,
	})
	if err != nil {
		return nil, err
	}
	if created == nil || !created.Success || created.Tenant == nil || created.Domain == nil {
		return nil, fmt.Errorf("%w: provisioning returned no tenant", provisioning.ErrTenantCreationFailed)
	}
	return created, nil
}

func (o *Orchestrator) createAdminUser(ctx context.Context, sr *data.SignupRequest, tnt *tenant.Tenant) (*auth.User, string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	var (
		user     *auth.User
		password string
	)
	err := o.schemaRunner.WithSchema(stepCtx, tnt.SchemaName, func(ctx context.Context, scope *schemactx.Scope) error {
		var createErr error
		user, password, createErr = o.userManager.CreateTenantAdminUser(ctx, scope.SQLExecuter(), tnt, auth.AdminUserData{
			Email:     sr.ContactEmail,
			FirstName: sr.ContactFirstName,
			LastName:  sr.ContactLastName,
		})
		return createErr
	})
	if err != nil {
		return nil, "", err
	}
	return user, password, nil
}

func (o *Orchestrator) sendWelcomeEmail(ctx context.Context, user *auth.User, tnt *tenant.Tenant, password string) error {
	notifyCtx, cancel := context.WithTimeout(ctx, o.notificationTimeout)
	defer cancel()

	err := o.notifier.SendWelcomeEmail(notifyCtx, user, tnt, password)
	status := "sent"
	if err != nil {
		status = "failed"
		err = apperror.Dependency("welcome email", err)
	}
	if o.monitorService != nil {
		if mErr := o.monitorService.MonitorCounters(monitor.WelcomeEmailsTag, monitor.WelcomeEmailLabels{Status: status}.ToMap()); mErr != nil {
			log.Ctx(ctx).Errorf("monitoring welcome emails: %v", mErr)
		}
	}
	return err
}

// fail moves the request to failed, recording the reason and, when one was already created, the tenant, so that the
// request can be resumed later.
func (o *Orchestrator) fail(ctx context.Context, sr *data.SignupRequest, result *WorkflowResult, step StepName, cause error) (*WorkflowResult, error) {
	err := apperror.FatalDependency(fmt.Sprintf("%s step failed", step), cause)
	o.crashTracker.LogAndReportErrors(ctx, err, fmt.Sprintf("processing demo request %d", sr.ID))

	var tenantID *int64
	note := fmt.Sprintf("Failed at %s: %v", step, cause)
	if result.Tenant != nil {
		tenantID = &result.Tenant.ID
		note += fmt.Sprintf(" (tenant %d was kept, resume to finish provisioning)", result.Tenant.ID)
	}

	if _, finalizeErr := o.signupRequests.Finalize(context.WithoutCancel(ctx), sr.ID, data.FailedSignupRequestStatus, tenantID, note); finalizeErr != nil {
		finalizeErr = fmt.Errorf("marking demo request %d as failed: %w", sr.ID, finalizeErr)
		o.crashTracker.LogAndReportErrors(ctx, finalizeErr, "")
		return o.failedResult(ctx, result, errors.Join(err, finalizeErr))
	}

	return o.failedResult(ctx, result, err)
}

func (o *Orchestrator) failedResult(ctx context.Context, result *WorkflowResult, err error) (*WorkflowResult, error) {
	result.Success = false
	result.Password = ""
	result.Message = err.Error()
	o.countProcessed(ctx, data.FailedSignupRequestStatus)
	return result, err
}

// rejectResult describes a request that was refused before any work was done.
func rejectResult(result *WorkflowResult, err error) (*WorkflowResult, error) {
	result.Message = err.Error()
	return result, err
}

// BulkProcessDemoRequests processes each id in turn. A failing request does not stop the others.
func (o *Orchestrator) BulkProcessDemoRequests(ctx context.Context, ids []int64) *BulkResult {
	bulk := &BulkResult{Results: make([]*WorkflowResult, 0, len(ids))}
	for _, id := range ids {
		result, err := o.ProcessDemoRequest(ctx, id)
		bulk.TotalProcessed++
		if err != nil {
			bulk.Failed++
		} else {
			bulk.Successful++
		}
		bulk.Results = append(bulk.Results, result)
	}

	log.Ctx(ctx).Infof("bulk processed %d demo requests: %d successful, %d failed", bulk.TotalProcessed, bulk.Successful, bulk.Failed)
	return bulk
}

// ListPendingDemoRequests returns the pending demo requests, newest first.
func (o *Orchestrator) ListPendingDemoRequests(ctx context.Context) ([]data.SignupRequest, error) {
	requests, err := o.signupRequests.GetAllByStatus(ctx, data.PendingSignupRequestStatus)
	if err != nil {
		return nil, fmt.Errorf("listing pending demo requests: %w", err)
	}
	return requests, nil
}

// RejectDemoRequest closes a pending demo request without provisioning anything.
func (o *Orchestrator) RejectDemoRequest(ctx context.Context, id int64, reason string) (*data.SignupRequest, error) {
	sr, err := o.signupRequests.Reject(ctx, id, reason)
	if err != nil {
		if errors.Is(err, data.ErrSignupRequestStatusConflict) {
			err = fmt.Errorf("%w: %w", ErrDemoRequestNotPending, err)
		}
		return nil, fmt.Errorf("rejecting demo request %d: %w", id, err)
	}

	log.Ctx(ctx).Infof("demo request %d rejected", id)
	return sr, nil
}

func approvalNote(tnt *tenant.Tenant, user *auth.User, emailSent bool) string {
	email := "welcome email sent"
	if !emailSent {
		email = "welcome email NOT sent"
	}
	return fmt.Sprintf("Approved: tenant %q (schema %s) created with admin %s, %s.", tnt.Name, tnt.SchemaName, user.Email, email)
}

func withRequestFields(ctx context.Context, id int64) context.Context {
	ctx = crashtracker.WithTags(ctx, map[string]string{"demo_request_id": strconv.FormatInt(id, 10)})
	return log.Set(ctx, log.Ctx(ctx).WithField("demo_request_id", id))
}

func (o *Orchestrator) observeStep(ctx context.Context, step StepName, err error, duration time.Duration) {
	if o.monitorService == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	labels := monitor.WorkflowStepLabels{Step: string(step), Status: status}.ToMap()
	if mErr := o.monitorService.MonitorDuration(duration, monitor.WorkflowStepDurationTag, labels); mErr != nil {
		log.Ctx(ctx).Errorf("monitoring step %s: %v", step, mErr)
	}
}

func (o *Orchestrator) countProcessed(ctx context.Context, outcome data.SignupRequestStatus) {
	if o.monitorService == nil {
		return
	}
	labels := monitor.DemoRequestLabels{Outcome: string(outcome)}.ToMap()
	if err := o.monitorService.MonitorCounters(monitor.DemoRequestsProcessedTag, labels); err != nil {
		log.Ctx(ctx).Errorf("monitoring processed demo requests: %v", err)
	}
}

func (o *Orchestrator) countTenantProvisioned(ctx context.Context) {
	if o.monitorService == nil {
		return
	}
	if err := o.monitorService.MonitorCounters(monitor.TenantsProvisionedTag, nil); err != nil {
		log.Ctx(ctx).Errorf("monitoring provisioned tenants: %v", err)
	}
}
