package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the conversational flow.
type ChatMetrics struct {
	turnsTotal    *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns processed, by detected intent and resolver",
		}, []string{"intent", "resolved_by"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "dispatch",
			Name:      "actions_total",
			Help:      "Dispatched appointment actions, by action and outcome",
		}, []string{"action", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "citabot",
			Subsystem: "llm",
			Name:      "completion_latency_seconds",
			Help:      "Latency of language model completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.dispatchTotal, m.llmLatency)
	return m
}

// ObserveTurn records one processed chat turn. resolvedBy is "rule" or "llm".
func (m *ChatMetrics) ObserveTurn(intent, resolvedBy string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, resolvedBy).Inc()
}

// ObserveDispatch records a dispatched action and its outcome.
func (m *ChatMetrics) ObserveDispatch(action, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveLLMLatency records a completion round trip.
func (m *ChatMetrics) ObserveLLMLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(outcome).Observe(seconds)
}
