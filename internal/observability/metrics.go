package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Tasks              prometheus.Gauge
	TaskMutations      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	OpenDialogs        prometheus.Gauge
	DialogEvents       *prometheus.CounterVec
	NotificationEvents *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
	WSWriteErrors      *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Tasks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Number of tasks currently in the store.",
		}),
		TaskMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_mutations_total",
			Help:      "Committed task mutations by operation.",
		}, []string{"op"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected task fields by field name.",
		}, []string{"field"}),
		OpenDialogs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_dialogs",
			Help:      "Number of task dialogs currently open.",
		}),
		DialogEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_events_total",
			Help:      "Dialog transitions by event.",
		}, []string{"event"}),
		NotificationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_events_total",
			Help:      "Completion notifications by event.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "WebSocket write failures by stage.",
		}, []string{"stage"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "status"}),
	}
}

// ObserveValidation counts each failing field of a rejected candidate.
func (m *Metrics) ObserveValidation(errs map[string]string) {
	if m == nil {
		return
	}
	for field := range errs {
		m.ValidationFailures.WithLabelValues(field).Inc()
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
