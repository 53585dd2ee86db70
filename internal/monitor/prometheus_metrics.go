package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "crm"

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counter := range CounterMetrics {
		metrics[tag] = counter
	}

	for tag, histogramVec := range HistogramVecMetrics {
		metrics[tag] = histogramVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: metricsNamespace, Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations, sliding window = 10m",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: metricsNamespace, Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failed DB query durations, sliding window = 10m",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	TenantsProvisionedTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "provisioning", Name: string(TenantsProvisionedTag),
		Help: "A counter of the tenants created by the demo request workflow",
	}),
}

var HistogramVecMetrics = map[MetricTag]*prometheus.HistogramVec{
	WorkflowStepDurationTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "workflow", Name: string(WorkflowStepDurationTag),
		Help:    "A histogram of the demo request workflow step durations",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
		WorkflowStepLabelNames,
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	DemoRequestsProcessedTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "workflow", Name: string(DemoRequestsProcessedTag),
		Help: "A counter of the demo requests processed, by outcome",
	},
		[]string{"outcome"},
	),
	WelcomeEmailsTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "notification", Name: string(WelcomeEmailsTag),
		Help: "A counter of the welcome emails sent to tenant admins",
	},
		[]string{"status"},
	),
}
