package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Summarization cycle metrics
	CycleRequests prometheus.Counter
	CycleLatency  prometheus.Histogram
	CycleErrors   *prometheus.CounterVec

	// Push delivery metrics
	PushDeliveries *prometheus.CounterVec

	// Reminder metrics
	RemindersCreated *prometheus.CounterVec
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	return &Metrics{
		// Summarization cycles counter
		CycleRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slacksum_cycles_total",
			Help: "Total number of fetch-and-summarize cycles started",
		}),

		// Cycle latency histogram
		CycleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "slacksum_cycle_duration_seconds",
			Help:    "Fetch-and-summarize cycle latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for agent responses
		}),

		// Cycle errors by type
		CycleErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "slacksum_cycle_errors_total",
			Help: "Total number of cycle errors by type",
		}, []string{"error_type"}),

		// Push deliveries by result
		PushDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "slacksum_push_deliveries_total",
			Help: "Total number of push notification deliveries by result",
		}, []string{"result"}), // result: "delivered", "failed", "expired"

		// Reminders created by origin
		RemindersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "slacksum_reminders_created_total",
			Help: "Total number of reminders created by origin",
		}, []string{"origin"}), // origin: "auto" or "manual"
	}
}

// RecordCycleStart records a new summarization cycle
func (m *Metrics) RecordCycleStart() {
	m.CycleRequests.Inc()
}

// RecordCycleLatency records cycle latency
func (m *Metrics) RecordCycleLatency(seconds float64) {
	m.CycleLatency.Observe(seconds)
}

// RecordCycleError records a cycle error
func (m *Metrics) RecordCycleError(errorType string) {
	m.CycleErrors.WithLabelValues(errorType).Inc()
}

// RecordPushDelivery records a push delivery attempt result
func (m *Metrics) RecordPushDelivery(result string) {
	m.PushDeliveries.WithLabelValues(result).Inc()
}

// RecordReminderCreated records a created reminder by origin
func (m *Metrics) RecordReminderCreated(origin string) {
	m.RemindersCreated.WithLabelValues(origin).Inc()
}
