package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/needlebench/needlebench/internal/sweep"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validYAML = `
provider: openai
model_name: gpt-4.1-mini
api_key: test-key
evaluator: openai
evaluator_api_key: judge-key
haystack_dir: testdata
context_lengths: [1000, 2000]
document_depth_percents: [0, 50, 100]
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4.1-mini" {
		t.Errorf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	// File values overlay defaults; untouched knobs keep theirs.
	if cfg.FinalContextLengthBuffer != 200 {
		t.Errorf("buffer = %d, want default 200", cfg.FinalContextLengthBuffer)
	}
	if cfg.EvaluatorModel != "gpt-3.5-turbo-0125" {
		t.Errorf("evaluator model = %q, want default", cfg.EvaluatorModel)
	}
	if !cfg.SaveResults || !cfg.PrintOngoingStatus {
		t.Error("boolean defaults not applied")
	}
	if cfg.Needle == "" || cfg.RetrievalQuestion == "" {
		t.Error("default needle/question not applied")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("NB_TEST_MODEL", "gpt-4.1")
	cfg, err := Load(writeConfig(t, strings.Replace(validYAML, "gpt-4.1-mini", "${NB_TEST_MODEL}", 1)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4.1" {
		t.Errorf("model = %q, want expanded env value", cfg.Model)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"\nbogus_knob: 7\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadEvaluatorKeyEnvFallback(t *testing.T) {
	t.Setenv("NIAH_EVALUATOR_API_KEY", "from-env")
	yaml := strings.Replace(validYAML, "evaluator_api_key: judge-key\n", "", 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EvaluatorAPIKey != "from-env" {
		t.Errorf("evaluator key = %q, want env fallback", cfg.EvaluatorAPIKey)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Provider = "foo" },
			field:  "provider",
		},
		{
			name:   "unknown evaluator",
			mutate: func(c *Config) { c.Evaluator = "grader9000" },
			field:  "evaluator",
		},
		{
			name:   "missing model",
			mutate: func(c *Config) { c.Model = "" },
			field:  "model_name",
		},
		{
			name:   "missing api key",
			mutate: func(c *Config) { c.APIKey = "" },
			field:  "api_key",
		},
		{
			name:   "context length below buffer",
			mutate: func(c *Config) { c.ContextLengths = []int{100} },
			field:  "context_lengths",
		},
		{
			name: "derived min below buffer",
			mutate: func(c *Config) {
				c.ContextLengths = nil
				c.ContextLengthsMin = 50
			},
			field: "context_lengths_min",
		},
		{
			name: "min above max",
			mutate: func(c *Config) {
				c.ContextLengths = nil
				c.ContextLengthsMin = 9000
				c.ContextLengthsMax = 4000
			},
			field: "context_lengths_max",
		},
		{
			name: "zero intervals",
			mutate: func(c *Config) {
				c.ContextLengths = nil
				c.ContextLengthsNumIntervals = 0
			},
			field: "context_lengths_num_intervals",
		},
		{
			name: "bad distribution",
			mutate: func(c *Config) {
				c.DocumentDepthPercents = nil
				c.DocumentDepthPercentIntervalType = "parabolic"
			},
			field: "document_depth_percent_interval_type",
		},
		{
			name:   "zero concurrency",
			mutate: func(c *Config) { c.NumConcurrentRequests = 0 },
			field:  "num_concurrent_requests",
		},
		{
			name:   "zero version",
			mutate: func(c *Config) { c.ResultsVersion = 0 },
			field:  "results_version",
		},
		{
			name: "multi needle without needles",
			mutate: func(c *Config) {
				c.MultiNeedle = true
				c.Needles = nil
			},
			field: "needles",
		},
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Results.Store = "redis" },
			field:  "results.store",
		},
		{
			name: "langsmith without eval set",
			mutate: func(c *Config) {
				c.Evaluator = "langsmith"
				c.EvalSet = ""
			},
			field: "eval_set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Model = "gpt-4.1-mini"
			cfg.APIKey = "k"
			cfg.EvaluatorAPIKey = "k"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			cerr, ok := err.(*Error)
			if !ok {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	cfg.Model = "gpt-4.1-mini"
	cfg.APIKey = "k"
	cfg.EvaluatorAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNeedleSpecMultiNeedleDefaults(t *testing.T) {
	cfg := Default()
	cfg.MultiNeedle = true
	cfg.applyDefaults()

	n := cfg.NeedleSpec()
	if len(n.Texts) != 3 {
		t.Fatalf("got %d default needles, want 3", len(n.Texts))
	}
	for _, text := range n.Texts {
		if !strings.Contains(text, "pizza") {
			t.Errorf("unexpected default needle %q", text)
		}
	}
}

func TestSweepSpecConversion(t *testing.T) {
	cfg := Default()
	cfg.DocumentDepthPercentIntervalType = "sigmoid"
	spec := cfg.SweepSpec()
	if spec.ContextMin != 1000 || spec.ContextMax != 16000 || spec.ContextIntervals != 35 {
		t.Errorf("context axis = %+v", spec)
	}
	if spec.Distribution != sweep.DistributionSigmoid {
		t.Errorf("distribution = %q", spec.Distribution)
	}
}

func TestRunnerConfigSleepConversion(t *testing.T) {
	cfg := Default()
	cfg.SecondsToSleepBetweenCompletions = 1.5
	rc := cfg.RunnerConfig()
	if rc.SleepBetweenDispatches.Seconds() != 1.5 {
		t.Errorf("sleep = %v, want 1.5s", rc.SleepBetweenDispatches)
	}
}
