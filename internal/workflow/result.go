package workflow

import (
	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type StepName string

const (
	StepCreateTenant     StepName = "create_tenant"
	StepCreateAdminUser  StepName = "create_admin_user"
	StepSendWelcomeEmail StepName = "send_welcome_email"
)

type StepResult struct {
	Step    StepName       `json:"step"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// WorkflowResult is the outcome of processing one demo request. Steps lists the steps that ran, in order.
type WorkflowResult struct {
	Success            bool           `json:"success"`
	RequestID          int64          `json:"request_id"`
	Tenant             *tenant.Tenant `json:"tenant,omitempty"`
	Domain             *tenant.Domain `json:"domain,omitempty"`
	AdminUser          *auth.User     `json:"admin_user,omitempty"`
	Password           string         `json:"password,omitempty"`
	EmailSent          bool           `json:"email_sent"`
	PermissionsWarning string         `json:"permissions_warning,omitempty"`
	Steps              []StepResult   `json:"steps"`
	Message            string         `json:"message"`
}

func (r *WorkflowResult) addStep(step StepName, err error, data map[string]any) {
	s := StepResult{Step: step, Success: err == nil, Data: data}
	if err != nil {
		s.Error = err.Error()
	}
	r.Steps = append(r.Steps, s)
}

type BulkResult struct {
	TotalProcessed int               `json:"total_processed"`
	Successful     int               `json:"successful"`
	Failed         int               `json:"failed"`
	Results        []*WorkflowResult `json:"results"`
}
