package monitor

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrClientNotInitialized = errors.New("client was not initialized")

type MonitorServiceInterface interface {
	Start(opts MetricOptions) error
	GetMetricType() (MetricType, error)
	GetMetricHTTPHandler() (http.Handler, error)
	MonitorHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels) error
	MonitorCounters(tag MetricTag, labels map[string]string) error
	MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) error
}

var _ MonitorServiceInterface = (*MonitorService)(nil)

type MonitorService struct {
	monitorClient MonitorClient
}

// NewMonitorService returns a started MonitorService.
func NewMonitorService(opts MetricOptions) (*MonitorService, error) {
	m := &MonitorService{}
	if err := m.Start(opts); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MonitorService) Start(opts MetricOptions) error {
	if m.monitorClient != nil {
		return fmt.Errorf("service already initialized")
	}

	monitorClient, err := GetClient(opts)
	if err != nil {
		return fmt.Errorf("error creating monitor client: %w", err)
	}

	m.monitorClient = monitorClient

	return nil
}

func (m *MonitorService) GetMetricType() (MetricType, error) {
	if m.monitorClient == nil {
		return "", ErrClientNotInitialized
	}

	return m.monitorClient.GetMetricType(), nil
}

func (m *MonitorService) GetMetricHTTPHandler() (http.Handler, error) {
	if m.monitorClient == nil {
		return nil, ErrClientNotInitialized
	}

	return m.monitorClient.GetMetricHTTPHandler(), nil
}

func (m *MonitorService) MonitorHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels) error {
	if m.monitorClient == nil {
		return ErrClientNotInitialized
	}

	m.monitorClient.MonitorHTTPRequestDuration(duration, labels)

	return nil
}

func (m *MonitorService) MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) error {
	if m.monitorClient == nil {
		return ErrClientNotInitialized
	}

	m.monitorClient.MonitorDuration(duration, tag, labels)

	return nil
}

func (m *MonitorService) MonitorCounters(tag MetricTag, labels map[string]string) error {
	if m.monitorClient == nil {
		return ErrClientNotInitialized
	}

	m.monitorClient.MonitorCounters(tag, labels)

	return nil
}
