package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the config file leaves a
// credential empty. This is the only place the process reads them.
const (
	evaluatorKeyEnv = "NIAH_EVALUATOR_API_KEY"
	langsmithKeyEnv = "LANGCHAIN_API_KEY"

	openaiKeyEnv    = "OPENAI_API_KEY"
	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	cohereKeyEnv    = "CO_API_KEY"
)

// Load reads, expands and validates the configuration at path. The raw
// bytes go through os.ExpandEnv before parsing, so values like
// `api_key: ${OPENAI_API_KEY}` work; unknown YAML keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := parse([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("expected a single YAML document")
	}
	return nil
}

// applyEnvFallbacks fills empty credentials from the conventional
// environment variables so config files never need literal secrets.
func (c *Config) applyEnvFallbacks() {
	if c.APIKey == "" {
		switch c.Provider {
		case "openai":
			c.APIKey = os.Getenv(openaiKeyEnv)
		case "anthropic":
			c.APIKey = os.Getenv(anthropicKeyEnv)
		case "cohere":
			c.APIKey = os.Getenv(cohereKeyEnv)
		}
	}
	if c.EvaluatorAPIKey == "" {
		switch c.Evaluator {
		case "openai":
			c.EvaluatorAPIKey = os.Getenv(evaluatorKeyEnv)
		case "langsmith":
			c.EvaluatorAPIKey = os.Getenv(langsmithKeyEnv)
		}
	}
}
