package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/needlebench/needlebench/internal/tokenizer"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend implements ModelBackend against OpenAI's chat completion
// API. It uses the exact tiktoken encoding for the configured model, so
// context budgets are measured in the model's own tokens.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	tok        tokenizer.Tokenizer
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIBackend creates an OpenAI backend from cfg. The API key is
// required; BaseURL optionally points the client at a compatible proxy.
func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model name is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	tok, err := tokenizer.ForModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		tok:        tok,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (b *OpenAIBackend) Name() string {
	return "openai"
}

func (b *OpenAIBackend) Model() string {
	return b.model
}

func (b *OpenAIBackend) Tokenizer() tokenizer.Tokenizer {
	return b.tok
}

// Complete sends the retrieval query and returns the completion text.
// Failures come back as *ProviderError with the HTTP status preserved
// when the SDK exposes one.
func (b *OpenAIBackend) Complete(ctx context.Context, contextText, question string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(contextText, question)},
		},
		MaxTokens:   answerMaxTokens,
		Temperature: 0,
	}

	var resp openai.ChatCompletionResponse
	err := retry(ctx, b.maxRetries, b.retryDelay, func() error {
		var callErr error
		resp, callErr = b.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		perr := NewProviderError(b.Name(), b.model, err)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			perr = perr.WithStatus(apiErr.HTTPStatusCode)
		}
		return "", perr
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError(b.Name(), b.model, errors.New("empty completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}
