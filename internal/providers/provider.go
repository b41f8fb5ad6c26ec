// Package providers implements the model backends a benchmark run can
// dispatch retrieval queries to: OpenAI, Anthropic and Cohere, behind one
// capability interface. Selection happens once at configuration time.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/needlebench/needlebench/internal/tokenizer"
)

// systemPrompt frames every retrieval query. It is deliberately short so
// the reserved context buffer stays a conservative over-estimate.
const systemPrompt = "You are a helpful AI bot that answers questions for a user. Keep your response short and direct"

// answerMaxTokens caps the completion length. Retrieval answers are one
// sentence; the cap keeps a misbehaving model from burning quota.
const answerMaxTokens = 300

// ModelBackend sends a retrieval query against an assembled context and
// returns the model's text completion.
//
// Implementations are safe for concurrent use; the runner invokes
// Complete from many trial goroutines at once. Any failure is returned as
// a *ProviderError so the trial can be sentineled with its reason.
type ModelBackend interface {
	// Name returns the stable lowercase backend identifier.
	Name() string

	// Model returns the model name as passed to the provider API.
	Model() string

	// Complete sends the assembled context and retrieval question and
	// returns the completion text.
	Complete(ctx context.Context, contextText, question string) (string, error)

	// Tokenizer returns the tokenizer this backend counts context
	// budgets with. The haystack assembler must use the same one.
	Tokenizer() tokenizer.Tokenizer
}

// Config selects and parameterizes a backend. API keys are threaded in
// from configuration loading; backends never read the environment.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// MaxRetries caps internal attempts per request. 1 disables
	// backend-level retries, which is the default: the harness isolates
	// failures per trial rather than retrying.
	MaxRetries int

	// RetryDelay is the base delay for linear backoff between attempts.
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

// New resolves a backend from the closed provider set. Unknown provider
// names are a configuration error naming the invalid value.
func New(cfg Config) (ModelBackend, error) {
	cfg.applyDefaults()
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIBackend(cfg)
	case "anthropic":
		return NewAnthropicBackend(cfg)
	case "cohere":
		return NewCohereBackend(cfg)
	default:
		return nil, fmt.Errorf("invalid provider: %q (expected openai, anthropic or cohere)", cfg.Provider)
	}
}

// userPrompt builds the single user turn: the haystack followed by the
// retrieval question.
func userPrompt(contextText, question string) string {
	return contextText + "\n\n" + question + " Don't give information outside the document or repeat your findings."
}

// retry runs op up to maxRetries times with linear backoff, stopping
// early on non-retryable errors or context cancellation.
func retry(ctx context.Context, maxRetries int, delay time.Duration, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay * time.Duration(attempt)):
			}
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
		if !ClassifyError(lastErr).Retryable() {
			return lastErr
		}
	}
	return lastErr
}
