package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kostbot"

// Metrics groups all Prometheus instruments used by the chatbot. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Replies          *prometheus.CounterVec
	GuardrailResults *prometheus.CounterVec
	ToolCalls        *prometheus.CounterVec
	BackendLatency   *prometheus.HistogramVec
	BackendErrors    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies by the tier that produced them.",
		}, []string{"tier"}),
		GuardrailResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardrail_results_total",
			Help:      "Guardrail decisions by classifier source and scope.",
		}, []string{"source", "in_scope"}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool dispatches by tool and outcome.",
		}, []string{"tool", "outcome"}),
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "Generative backend call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		}, []string{"op"}),
		BackendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Generative backend call failures by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) ObserveReply(tier string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(tier).Inc()
}

func (m *Metrics) ObserveGuardrail(source string, inScope bool) {
	if m == nil {
		return
	}
	scope := "false"
	if inScope {
		scope = "true"
	}
	m.GuardrailResults.WithLabelValues(source, scope).Inc()
}

func (m *Metrics) ObserveTool(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveBackend has the signature of llm.Observer
func (m *Metrics) ObserveBackend(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if elapsed > 0 {
		m.BackendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if err != nil {
		m.BackendErrors.WithLabelValues(op).Inc()
	}
}

// Handler serves the metrics registered in g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
