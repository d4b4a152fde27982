package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the notification worker.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	deliverTotal    *prometheus.CounterVec
	deliverDuration *prometheus.HistogramVec
	deliverInFlight prometheus.Gauge
	retriesTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	deliverTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "notification_deliver_total",
			Help:      "Delivered notifications by message key and status.",
		},
		[]string{"service", "message_key", "status"},
	)
	deliverDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "notification_deliver_duration_seconds",
			Help:      "Notification render and store duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	deliverInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "notification_deliver_in_flight",
			Help:      "Number of notifications being delivered.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retry attempts by operation.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(deliverTotal, deliverDuration, deliverInFlight, retriesTotal)

	return &WorkerMetrics{
		service:         service,
		registry:        registry,
		deliverTotal:    deliverTotal,
		deliverDuration: deliverDuration,
		deliverInFlight: deliverInFlight,
		retriesTotal:    retriesTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDelivery() {
	m.deliverInFlight.Inc()
}

func (m *WorkerMetrics) FinishDelivery(messageKey string, duration time.Duration, err error) {
	m.deliverInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.deliverTotal.WithLabelValues(m.service, messageKey, status).Inc()
	m.deliverDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *WorkerMetrics) ObserveBreakerState(string, string) {}
