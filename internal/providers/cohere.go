package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
	"github.com/needlebench/needlebench/internal/tokenizer"
)

// CohereBackend implements ModelBackend against Cohere's chat API. As
// with Anthropic, token budgets are approximated with cl100k_base since
// Cohere's tokenizer is not available locally.
type CohereBackend struct {
	client     *cohereclient.Client
	model      string
	tok        tokenizer.Tokenizer
	maxRetries int
	retryDelay time.Duration
}

// NewCohereBackend creates a Cohere backend from cfg.
func NewCohereBackend(cfg Config) (*CohereBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cohere: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("cohere: model name is required")
	}

	options := []cohereoption.RequestOption{cohereclient.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, cohereclient.WithBaseURL(cfg.BaseURL))
	}

	tok, err := tokenizer.ForModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("cohere: %w", err)
	}

	return &CohereBackend{
		client:     cohereclient.NewClient(options...),
		model:      cfg.Model,
		tok:        tok,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (b *CohereBackend) Name() string {
	return "cohere"
}

func (b *CohereBackend) Model() string {
	return b.model
}

func (b *CohereBackend) Tokenizer() tokenizer.Tokenizer {
	return b.tok
}

// Complete sends the retrieval query and returns the completion text.
func (b *CohereBackend) Complete(ctx context.Context, contextText, question string) (string, error) {
	model := b.model
	preamble := systemPrompt
	req := &cohere.ChatRequest{
		Model:    &model,
		Preamble: &preamble,
		Message:  userPrompt(contextText, question),
	}

	var resp *cohere.NonStreamedChatResponse
	err := retry(ctx, b.maxRetries, b.retryDelay, func() error {
		var callErr error
		resp, callErr = b.client.Chat(ctx, req)
		return callErr
	})
	if err != nil {
		return "", NewProviderError(b.Name(), b.model, err)
	}

	if resp == nil || resp.Text == "" {
		return "", NewProviderError(b.Name(), b.model, errors.New("empty completion response"))
	}
	return resp.Text, nil
}
