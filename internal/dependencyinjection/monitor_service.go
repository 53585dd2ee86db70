package dependencyinjection

import (
	"fmt"

	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
)

const MonitorServiceInstanceName = "monitor_service_instance"

// NewMonitorService creates the metrics service. Its registry is process wide, so there is a single instance
// whatever the options.
func NewMonitorService(opts monitor.MetricOptions) (monitor.MonitorServiceInterface, error) {
	return getOrCreate(MonitorServiceInstanceName, func() (monitor.MonitorServiceInterface, error) {
		monitorService, err := monitor.NewMonitorService(opts)
		if err != nil {
			return nil, fmt.Errorf("creating monitor service: %w", err)
		}
		return monitorService, nil
	})
}
