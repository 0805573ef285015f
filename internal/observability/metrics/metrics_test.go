package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWebhookMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.ObserveReport("created")
	m.ObserveReport("created")
	m.ObserveReport("no_appointment")
	m.ObserveToolCall("checkAppointmentLimit", "ok")
	m.ObserveExtractionLatency(0.42)
	m.ObserveAppointment("created")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.reportsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reportsTotal.WithLabelValues("no_appointment")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.toolCallsTotal.WithLabelValues("checkAppointmentLimit", "ok")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *WebhookMetrics
	m.ObserveReport("created")
	m.ObserveToolCall("fetchAllDoctors", "ok")
	m.ObserveExtractionLatency(1)
	m.ObserveAppointment("skipped")
}
