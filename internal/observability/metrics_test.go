package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTrialCountsByStatus(t *testing.T) {
	m := newMetricsWith(prometheus.NewRegistry())

	m.ObserveTrial("openai", "gpt-4.1-mini", "ok", 2*time.Second)
	m.ObserveTrial("openai", "gpt-4.1-mini", "ok", 3*time.Second)
	m.ObserveTrial("openai", "gpt-4.1-mini", "sentineled", time.Second)
	m.ObserveTrial("openai", "gpt-4.1-mini", "skipped", 0)

	if got := testutil.ToFloat64(m.TrialCounter.WithLabelValues("openai", "gpt-4.1-mini", "ok")); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TrialCounter.WithLabelValues("openai", "gpt-4.1-mini", "sentineled")); got != 1 {
		t.Errorf("sentineled count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TrialCounter.WithLabelValues("openai", "gpt-4.1-mini", "skipped")); got != 1 {
		t.Errorf("skipped count = %v, want 1", got)
	}
}

func TestObserveScoreRecordsSamples(t *testing.T) {
	m := newMetricsWith(prometheus.NewRegistry())

	for _, s := range []int{10, 7, 1} {
		m.ObserveScore("openai", s)
	}
	if got := testutil.CollectAndCount(m.EvalScore); got != 1 {
		t.Errorf("collected %d series, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTrial("openai", "gpt-4.1-mini", "ok", time.Second)
	m.ObserveLLMRequest("openai", "gpt-4.1-mini", time.Second)
	m.ObserveScore("openai", 10)
}
