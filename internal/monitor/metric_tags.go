package monitor

type MetricTag string

const (
	HTTPRequestDurationTag MetricTag = "requests_duration_seconds"
	// DB queries:
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration_seconds"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration_seconds"
	// Demo request workflow:
	DemoRequestsProcessedTag MetricTag = "demo_requests_processed_total"
	WorkflowStepDurationTag  MetricTag = "workflow_step_duration_seconds"
	// Provisioning:
	TenantsProvisionedTag MetricTag = "tenants_provisioned_total"
	WelcomeEmailsTag      MetricTag = "welcome_emails_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		HTTPRequestDurationTag,
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		DemoRequestsProcessedTag,
		WorkflowStepDurationTag,
		TenantsProvisionedTag,
		WelcomeEmailsTag,
	}
}
