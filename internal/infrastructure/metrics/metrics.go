package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handover-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Handover requests by method and outcome
	HandoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "handovers_total",
			Help:      "Total handover requests by method and resulting status",
		},
		[]string{"method", "status"},
	)

	// Notification delivery failures by channel
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "notification_failures_total",
			Help:      "Total failed outbound notifications",
		},
		[]string{"channel"},
	)

	// Inactivity reminders sent
	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "inactivity_reminders_total",
			Help:      "Total inactivity reminders by side and escalation stage",
		},
		[]string{"side", "stage"},
	)

	// Auto-ended conversations
	AutoEndsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "auto_ends_total",
			Help:      "Total conversations ended by the inactivity monitor",
		},
		[]string{"reason"},
	)

	// Extension grants
	ExtensionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "extensions_total",
			Help:      "Total granted conversation extensions",
		},
		[]string{"side"},
	)

	// Inactivity sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "livechat",
			Subsystem: "handover_api",
			Name:      "sweep_duration_seconds",
			Help:      "Inactivity sweep duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordHandover records a dispatched handover request
func RecordHandover(method, status string) {
	HandoversTotal.WithLabelValues(method, status).Inc()
}

// RecordNotificationFailure records a failed outbound notification
func RecordNotificationFailure(channel string) {
	NotificationFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordReminder records an inactivity reminder
func RecordReminder(side, stage string) {
	RemindersTotal.WithLabelValues(side, stage).Inc()
}

// RecordAutoEnd records an auto-ended conversation
func RecordAutoEnd(reason string) {
	AutoEndsTotal.WithLabelValues(reason).Inc()
}

// RecordExtension records a granted extension
func RecordExtension(side string) {
	ExtensionsTotal.WithLabelValues(side).Inc()
}

// RecordSweep records one inactivity sweep
func RecordSweep(durationSec float64) {
	SweepDuration.Observe(durationSec)
}
