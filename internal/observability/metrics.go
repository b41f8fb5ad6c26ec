// Package observability collects Prometheus metrics for benchmark runs:
// trial outcomes, model and evaluator call latency, and score
// distribution.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized metric set for a benchmark process. A nil
// *Metrics is valid and records nothing, so wiring stays optional.
type Metrics struct {
	// TrialCounter counts executed trials.
	// Labels: provider, model, status (ok|sentineled|skipped)
	TrialCounter *prometheus.CounterVec

	// TrialDuration measures end-to-end trial time in seconds.
	// Labels: provider, model
	TrialDuration *prometheus.HistogramVec

	// LLMRequestDuration measures model completion latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// EvalScore tracks the distribution of rubric scores.
	// Labels: evaluator
	EvalScore *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the default registry.
// Call once at startup.
func NewMetrics() *Metrics {
	return newMetricsWith(prometheus.DefaultRegisterer)
}

func newMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TrialCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "needlebench_trials_total",
				Help: "Total trials by outcome",
			},
			[]string{"provider", "model", "status"},
		),
		TrialDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "needlebench_trial_duration_seconds",
				Help:    "End-to-end trial duration",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider", "model"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "needlebench_llm_request_duration_seconds",
				Help:    "Model completion latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		EvalScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "needlebench_eval_score",
				Help:    "Rubric score distribution",
				Buckets: []float64{1, 3, 5, 7, 10},
			},
			[]string{"evaluator"},
		),
	}
}

// ObserveTrial records one finished trial.
func (m *Metrics) ObserveTrial(provider, model, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TrialCounter.WithLabelValues(provider, model, status).Inc()
	if status != "skipped" {
		m.TrialDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
	}
}

// ObserveLLMRequest records one model completion call.
func (m *Metrics) ObserveLLMRequest(provider, model string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// ObserveScore records one evaluator score.
func (m *Metrics) ObserveScore(evaluator string, score int) {
	if m == nil {
		return
	}
	m.EvalScore.WithLabelValues(evaluator).Observe(float64(score))
}
