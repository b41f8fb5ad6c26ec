// Package config loads and validates the benchmark configuration.
// Environment expansion and credential fallbacks happen here and nowhere
// else; by the time a Config leaves Load, every component downstream can
// treat it as a plain value.
package config

import (
	"fmt"
	"time"

	"github.com/needlebench/needlebench/internal/eval"
	"github.com/needlebench/needlebench/internal/providers"
	"github.com/needlebench/needlebench/internal/runner"
	"github.com/needlebench/needlebench/internal/sweep"
	"github.com/needlebench/needlebench/pkg/models"
)

// Error is a fatal configuration failure. It aborts the process before
// any trial runs; it is the only error class that crosses the
// orchestration boundary uncaught.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func errf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ResultsConfig selects and parameterizes the result store.
type ResultsConfig struct {
	// Store is "fs" or "sqlite".
	Store       string `yaml:"store"`
	Dir         string `yaml:"dir"`
	ContextsDir string `yaml:"contexts_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Config is the full benchmark configuration. Field names mirror the
// YAML surface.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model_name"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	Evaluator        string `yaml:"evaluator"`
	EvaluatorModel   string `yaml:"evaluator_model_name"`
	EvaluatorAPIKey  string `yaml:"evaluator_api_key"`
	EvaluatorBaseURL string `yaml:"evaluator_base_url"`
	EvalSet          string `yaml:"eval_set"`

	HaystackDir       string   `yaml:"haystack_dir"`
	Needle            string   `yaml:"needle"`
	Needles           []string `yaml:"needles"`
	MultiNeedle       bool     `yaml:"multi_needle"`
	RetrievalQuestion string   `yaml:"retrieval_question"`
	ReferenceAnswer   string   `yaml:"reference_answer"`

	ContextLengths             []int `yaml:"context_lengths"`
	ContextLengthsMin          int   `yaml:"context_lengths_min"`
	ContextLengthsMax          int   `yaml:"context_lengths_max"`
	ContextLengthsNumIntervals int   `yaml:"context_lengths_num_intervals"`

	DocumentDepthPercents            []float64 `yaml:"document_depth_percents"`
	DocumentDepthPercentMin          float64   `yaml:"document_depth_percent_min"`
	DocumentDepthPercentMax          float64   `yaml:"document_depth_percent_max"`
	DocumentDepthPercentIntervals    int       `yaml:"document_depth_percent_intervals"`
	DocumentDepthPercentIntervalType string    `yaml:"document_depth_percent_interval_type"`

	NumConcurrentRequests            int     `yaml:"num_concurrent_requests"`
	FinalContextLengthBuffer         int     `yaml:"final_context_length_buffer"`
	SecondsToSleepBetweenCompletions float64 `yaml:"seconds_to_sleep_between_completions"`
	RequestTimeoutSeconds            int     `yaml:"request_timeout_seconds"`
	SaveResults                      bool    `yaml:"save_results"`
	SaveContexts                     bool    `yaml:"save_contexts"`
	PrintOngoingStatus               bool    `yaml:"print_ongoing_status"`
	ResultsVersion                   int     `yaml:"results_version"`

	Results ResultsConfig `yaml:"results"`

	// MetricsAddr, when set, exposes a Prometheus endpoint on that
	// address for the duration of the run.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default single-needle configuration matching the reference benchmark
// corpus of Paul Graham essays.
const (
	defaultNeedle            = " The best thing to do in San Francisco is eat a sandwich and sit in Dolores Park on a sunny day. "
	defaultRetrievalQuestion = "What is the best thing to do in San Francisco?"
	defaultReferenceAnswer   = "The best thing to do in San Francisco is eat a sandwich and sit in Dolores Park on a sunny day."
)

var defaultMultiNeedles = []string{
	"Figs are one of the secret ingredients needed to build the perfect pizza. ",
	"Prosciutto is one of the secret ingredients needed to build the perfect pizza. ",
	"Goat cheese is one of the secret ingredients needed to build the perfect pizza. ",
}

// Default returns a Config with every optional knob at its documented
// default. Load starts from this and overlays the file on top.
func Default() Config {
	return Config{
		Provider:                         "openai",
		Evaluator:                        "openai",
		EvaluatorModel:                   "gpt-3.5-turbo-0125",
		HaystackDir:                      "haystack",
		Needle:                           defaultNeedle,
		RetrievalQuestion:                defaultRetrievalQuestion,
		ReferenceAnswer:                  defaultReferenceAnswer,
		ContextLengthsMin:                1000,
		ContextLengthsMax:                16000,
		ContextLengthsNumIntervals:       35,
		DocumentDepthPercentMin:          0,
		DocumentDepthPercentMax:          100,
		DocumentDepthPercentIntervals:    35,
		DocumentDepthPercentIntervalType: "linear",
		NumConcurrentRequests:            1,
		FinalContextLengthBuffer:         200,
		RequestTimeoutSeconds:            300,
		SaveResults:                      true,
		SaveContexts:                     true,
		PrintOngoingStatus:               true,
		ResultsVersion:                   1,
		Results: ResultsConfig{
			Store:       "fs",
			Dir:         "results",
			ContextsDir: "contexts",
			SQLitePath:  "results.db",
		},
	}
}

func (c *Config) applyDefaults() {
	if c.MultiNeedle && len(c.Needles) == 0 {
		c.Needles = append([]string(nil), defaultMultiNeedles...)
	}
}

// Validate checks every numeric bound and enumerated value up front so a
// misconfigured run fails before the first trial, not in the middle of
// the sweep.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic", "cohere":
	default:
		return errf("provider", "invalid provider: %q (expected openai, anthropic or cohere)", c.Provider)
	}
	if c.Model == "" {
		return errf("model_name", "model name is required")
	}
	if c.APIKey == "" {
		return errf("api_key", "missing API key for provider %s", c.Provider)
	}

	switch c.Evaluator {
	case "openai":
		if c.EvaluatorAPIKey == "" {
			return errf("evaluator_api_key", "missing evaluator API key (set %s)", evaluatorKeyEnv)
		}
		if c.EvaluatorModel == "" {
			return errf("evaluator_model_name", "evaluator model name is required")
		}
	case "langsmith":
		if c.EvaluatorAPIKey == "" {
			return errf("evaluator_api_key", "missing evaluator API key")
		}
		if c.EvalSet == "" {
			return errf("eval_set", "langsmith evaluator requires an eval set name")
		}
	default:
		return errf("evaluator", "invalid evaluator: %q (expected openai or langsmith)", c.Evaluator)
	}

	if c.HaystackDir == "" {
		return errf("haystack_dir", "haystack directory is required")
	}
	if c.RetrievalQuestion == "" {
		return errf("retrieval_question", "retrieval question is required")
	}
	if c.ReferenceAnswer == "" {
		return errf("reference_answer", "reference answer is required")
	}
	if c.MultiNeedle {
		if len(c.Needles) == 0 {
			return errf("needles", "multi_needle requires at least one needle text")
		}
	} else if c.Needle == "" {
		return errf("needle", "needle text is required")
	}

	if c.FinalContextLengthBuffer < 0 {
		return errf("final_context_length_buffer", "buffer must not be negative, got %d", c.FinalContextLengthBuffer)
	}
	if len(c.ContextLengths) > 0 {
		for _, l := range c.ContextLengths {
			if l <= c.FinalContextLengthBuffer {
				return errf("context_lengths", "context length %d does not exceed buffer %d", l, c.FinalContextLengthBuffer)
			}
		}
	} else {
		if c.ContextLengthsMin <= c.FinalContextLengthBuffer {
			return errf("context_lengths_min", "minimum context length %d does not exceed buffer %d", c.ContextLengthsMin, c.FinalContextLengthBuffer)
		}
		if c.ContextLengthsMin > c.ContextLengthsMax {
			return errf("context_lengths_max", "min %d exceeds max %d", c.ContextLengthsMin, c.ContextLengthsMax)
		}
		if c.ContextLengthsNumIntervals < 1 {
			return errf("context_lengths_num_intervals", "interval count must be at least 1, got %d", c.ContextLengthsNumIntervals)
		}
	}

	if len(c.DocumentDepthPercents) == 0 {
		if c.DocumentDepthPercentMin > c.DocumentDepthPercentMax {
			return errf("document_depth_percent_max", "min %.2f exceeds max %.2f", c.DocumentDepthPercentMin, c.DocumentDepthPercentMax)
		}
		if c.DocumentDepthPercentIntervals < 1 {
			return errf("document_depth_percent_intervals", "interval count must be at least 1, got %d", c.DocumentDepthPercentIntervals)
		}
		switch sweep.Distribution(c.DocumentDepthPercentIntervalType) {
		case sweep.DistributionLinear, sweep.DistributionSigmoid:
		default:
			return errf("document_depth_percent_interval_type", "invalid distribution: %q (expected linear or sigmoid)", c.DocumentDepthPercentIntervalType)
		}
	}

	if c.NumConcurrentRequests < 1 {
		return errf("num_concurrent_requests", "concurrency must be at least 1, got %d", c.NumConcurrentRequests)
	}
	if c.SecondsToSleepBetweenCompletions < 0 {
		return errf("seconds_to_sleep_between_completions", "sleep must not be negative")
	}
	if c.RequestTimeoutSeconds < 0 {
		return errf("request_timeout_seconds", "timeout must not be negative")
	}
	if c.ResultsVersion < 1 {
		return errf("results_version", "version must be at least 1, got %d", c.ResultsVersion)
	}

	switch c.Results.Store {
	case "fs":
		if c.Results.Dir == "" {
			return errf("results.dir", "results directory is required for the fs store")
		}
	case "sqlite":
		if c.Results.SQLitePath == "" {
			return errf("results.sqlite_path", "database path is required for the sqlite store")
		}
	default:
		return errf("results.store", "invalid store: %q (expected fs or sqlite)", c.Results.Store)
	}

	return nil
}

// NeedleSpec returns the needle configuration as the shared model type.
func (c *Config) NeedleSpec() models.Needle {
	texts := []string{c.Needle}
	if c.MultiNeedle {
		texts = c.Needles
	}
	return models.Needle{
		Texts:             texts,
		RetrievalQuestion: c.RetrievalQuestion,
		ReferenceAnswer:   c.ReferenceAnswer,
	}
}

// SweepSpec returns the sweep axes derived from the configuration.
func (c *Config) SweepSpec() sweep.Spec {
	return sweep.Spec{
		ContextLengths:   c.ContextLengths,
		ContextMin:       c.ContextLengthsMin,
		ContextMax:       c.ContextLengthsMax,
		ContextIntervals: c.ContextLengthsNumIntervals,
		DepthPercents:    c.DocumentDepthPercents,
		DepthMin:         c.DocumentDepthPercentMin,
		DepthMax:         c.DocumentDepthPercentMax,
		DepthIntervals:   c.DocumentDepthPercentIntervals,
		Distribution:     sweep.Distribution(c.DocumentDepthPercentIntervalType),
	}
}

// ProviderConfig returns the backend construction parameters.
func (c *Config) ProviderConfig() providers.Config {
	return providers.Config{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
	}
}

// EvalConfig returns the evaluator construction parameters.
func (c *Config) EvalConfig() eval.Config {
	return eval.Config{
		Evaluator:     c.Evaluator,
		Model:         c.EvaluatorModel,
		APIKey:        c.EvaluatorAPIKey,
		BaseURL:       c.EvaluatorBaseURL,
		QuestionAsked: c.RetrievalQuestion,
		TrueAnswer:    c.ReferenceAnswer,
		EvalSet:       c.EvalSet,
	}
}

// RunnerConfig returns the orchestration parameters.
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		Needle:                 c.NeedleSpec(),
		Version:                c.ResultsVersion,
		Buffer:                 c.FinalContextLengthBuffer,
		NumConcurrent:          c.NumConcurrentRequests,
		SleepBetweenDispatches: time.Duration(c.SecondsToSleepBetweenCompletions * float64(time.Second)),
		RequestTimeout:         time.Duration(c.RequestTimeoutSeconds) * time.Second,
		SaveResults:            c.SaveResults,
		SaveContexts:           c.SaveContexts,
		PrintOngoingStatus:     c.PrintOngoingStatus,
	}
}
