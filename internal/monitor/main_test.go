package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseMetricType(t *testing.T) {
	testCases := []struct {
		metricTypeStr      string
		expectedMetricType MetricType
		wantErr            string
	}{
		{wantErr: `invalid metric type ""`},
		{metricTypeStr: "statsd", wantErr: `invalid metric type "STATSD"`},
		{metricTypeStr: "prometheus", expectedMetricType: MetricTypePrometheus},
		{metricTypeStr: " PromeTHEUS ", expectedMetricType: MetricTypePrometheus},
	}
	for _, tc := range testCases {
		t.Run("metricType: "+tc.metricTypeStr, func(t *testing.T) {
			metricType, err := ParseMetricType(tc.metricTypeStr)
			assert.Equal(t, tc.expectedMetricType, metricType)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_GetClient(t *testing.T) {
	t.Run("get prometheus monitor client", func(t *testing.T) {
		gotClient, err := GetClient(MetricOptions{MetricType: MetricTypePrometheus})
		assert.NoError(t, err)
		assert.IsType(t, &prometheusClient{}, gotClient)
	})

	t.Run("error metric passed is invalid", func(t *testing.T) {
		gotClient, err := GetClient(MetricOptions{MetricType: "STATSD"})
		assert.Nil(t, gotClient)
		assert.EqualError(t, err, `unknown metric type: "STATSD"`)
	})
}
