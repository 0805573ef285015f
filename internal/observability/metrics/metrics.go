package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for call-report processing.
type WebhookMetrics struct {
	reportsTotal      *prometheus.CounterVec
	toolCallsTotal    *prometheus.CounterVec
	extractionLatency prometheus.Histogram
	appointmentsTotal *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callpilot",
			Subsystem: "webhook",
			Name:      "end_of_call_reports_total",
			Help:      "Total end-of-call reports received",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callpilot",
			Subsystem: "webhook",
			Name:      "tool_calls_total",
			Help:      "Total voice-agent function calls",
		}, []string{"function", "status"}),
		extractionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "callpilot",
			Subsystem: "extraction",
			Name:      "latency_seconds",
			Help:      "Latency of structured extraction model calls",
			Buckets:   prometheus.DefBuckets,
		}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callpilot",
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointments written, skipped, or rejected at the cap",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reportsTotal, m.toolCallsTotal, m.extractionLatency, m.appointmentsTotal)
	return m
}

func (m *WebhookMetrics) ObserveReport(outcome string) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(outcome).Inc()
}

func (m *WebhookMetrics) ObserveToolCall(function, status string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(function, status).Inc()
}

func (m *WebhookMetrics) ObserveExtractionLatency(seconds float64) {
	if m == nil {
		return
	}
	m.extractionLatency.Observe(seconds)
}

func (m *WebhookMetrics) ObserveAppointment(result string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(result).Inc()
}
