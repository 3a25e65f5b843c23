package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveTurn("create", "rule")
	m.ObserveTurn("create", "rule")
	m.ObserveDispatch("create", "ok")
	m.ObserveLLMLatency("ok", 0.5)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("create", "rule")); got != 2 {
		t.Errorf("turns_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("actions_total = %v, want 1", got)
	}
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("consult", "llm")
	m.ObserveDispatch("cancel", "error")
	m.ObserveLLMLatency("error", 0.1)
}
