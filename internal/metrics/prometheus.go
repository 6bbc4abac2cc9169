// internal/metrics/prometheus.go - Prometheus instrumentation
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ampel_check_duration_seconds",
			Help:    "Time spent executing check commands",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check", "status"},
	)

	CheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ampel_checks_total",
			Help: "Total number of check runs",
		},
		[]string{"check", "status"},
	)

	CheckStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ampel_check_status",
			Help: "Latest status per check (0=OK, 1=Alert, 2=Error)",
		},
		[]string{"check"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ampel_llm_request_duration_seconds",
			Help:    "Time spent waiting on LLM responses",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model", "stage"},
	)

	LLMRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ampel_llm_requests_total",
			Help: "Total number of LLM requests",
		},
		[]string{"model", "stage", "outcome"},
	)

	NotificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ampel_notifications_total",
			Help: "Total number of notification attempts",
		},
		[]string{"outcome"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ampel_store_operations_total",
			Help: "Total store operations performed",
		},
		[]string{"operation", "status"},
	)

	ActiveChecks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ampel_active_checks_total",
			Help: "Number of enabled checks configured",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ampel_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

func RecordCheckRun(check, status string, duration time.Duration) {
	CheckDuration.WithLabelValues(check, status).Observe(duration.Seconds())
	CheckTotal.WithLabelValues(check, status).Inc()
	CheckStatus.WithLabelValues(check).Set(statusValue(status))
}

func RecordLLMRequest(model, stage, outcome string, duration time.Duration) {
	LLMRequestDuration.WithLabelValues(model, stage).Observe(duration.Seconds())
	LLMRequestTotal.WithLabelValues(model, stage, outcome).Inc()
}

func RecordNotification(sent bool) {
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	NotificationTotal.WithLabelValues(outcome).Inc()
}

func RecordStoreOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(operation, status).Inc()
}

func RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func statusValue(status string) float64 {
	switch status {
	case "ok":
		return 0
	case "alert":
		return 1
	default:
		return 2
	}
}
