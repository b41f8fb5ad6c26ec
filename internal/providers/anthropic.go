package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/needlebench/needlebench/internal/tokenizer"
)

// AnthropicBackend implements ModelBackend against the Anthropic Messages
// API.
//
// Anthropic does not publish its tokenizer, so context budgets use the
// cl100k_base encoding as an approximation. The reserved context buffer
// absorbs the discrepancy; assembled contexts stay within the requested
// budget as measured by the injected tokenizer, which is the contract the
// rest of the harness relies on.
type AnthropicBackend struct {
	client     anthropic.Client
	model      string
	tok        tokenizer.Tokenizer
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicBackend creates an Anthropic backend from cfg.
func NewAnthropicBackend(cfg Config) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model name is required")
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	tok, err := tokenizer.ForModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	return &AnthropicBackend{
		client:     anthropic.NewClient(options...),
		model:      cfg.Model,
		tok:        tok,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (b *AnthropicBackend) Name() string {
	return "anthropic"
}

func (b *AnthropicBackend) Model() string {
	return b.model
}

func (b *AnthropicBackend) Tokenizer() tokenizer.Tokenizer {
	return b.tok
}

// Complete sends the retrieval query and returns the concatenated text
// blocks of the response.
func (b *AnthropicBackend) Complete(ctx context.Context, contextText, question string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(answerMaxTokens),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(contextText, question))),
		},
	}

	var msg *anthropic.Message
	err := retry(ctx, b.maxRetries, b.retryDelay, func() error {
		var callErr error
		msg, callErr = b.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return "", NewProviderError(b.Name(), b.model, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", NewProviderError(b.Name(), b.model, errors.New("empty completion response"))
	}
	return sb.String(), nil
}
