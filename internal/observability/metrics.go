package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for Kusina.
// Uses a custom registry, never the global one.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// LLM metrics.
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensUsed      *prometheus.CounterVec

	// Agent metrics.
	AgentRequestsTotal  *prometheus.CounterVec
	AgentHandleDuration *prometheus.HistogramVec
	RouteDecisionsTotal *prometheus.CounterVec
	Conversations       prometheus.Gauge

	// Notification metrics.
	NotificationsTotal *prometheus.CounterVec

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System metrics.
	ActiveRequests prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		LLMRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total LLM API requests.",
		}, []string{"provider", "status"}),

		LLMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kusina",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM API request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		LLMTokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "llm",
			Name:      "tokens_used_total",
			Help:      "Total LLM tokens consumed.",
		}, []string{"provider", "direction"}),

		AgentRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "agent",
			Name:      "requests_total",
			Help:      "Requests handled per agent, by outcome.",
		}, []string{"agent", "outcome"}),

		AgentHandleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kusina",
			Subsystem: "agent",
			Name:      "handle_duration_seconds",
			Help:      "Time spent inside an agent handler.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"agent"}),

		RouteDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Routing decisions by matched rule and chosen agent.",
		}, []string{"rule", "agent"}),

		Conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kusina",
			Name:      "conversations",
			Help:      "Number of conversations held in memory.",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Notification deliveries by sender and status.",
		}, []string{"sender", "status"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kusina",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kusina",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),
	}

	reg.MustRegister(
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
		m.LLMTokensUsed,
		m.AgentRequestsTotal,
		m.AgentHandleDuration,
		m.RouteDecisionsTotal,
		m.Conversations,
		m.NotificationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
	)

	return m
}
