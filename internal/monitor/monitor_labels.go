package monitor

type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

func (d DBQueryLabels) ToMap() map[string]string {
	return map[string]string{"query_type": d.QueryType}
}

// DemoRequestLabels label the final outcome of processing one demo request.
type DemoRequestLabels struct {
	Outcome string
}

func (d DemoRequestLabels) ToMap() map[string]string {
	return map[string]string{"outcome": d.Outcome}
}

type WorkflowStepLabels struct {
	Step   string
	Status string
}

func (w WorkflowStepLabels) ToMap() map[string]string {
	return map[string]string{
		"step":   w.Step,
		"status": w.Status,
	}
}

var WorkflowStepLabelNames = []string{"step", "status"}

type WelcomeEmailLabels struct {
	Status string
}

func (w WelcomeEmailLabels) ToMap() map[string]string {
	return map[string]string{"status": w.Status}
}
