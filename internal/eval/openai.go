package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// accuracyCriteria is the scoring rubric presented to the judge model.
// Scores are restricted to {1, 3, 5, 7, 10}.
const accuracyCriteria = `
Score 1: The answer is completely unrelated to the reference.
Score 3: The answer has minor relevance but does not align with the reference.
Score 5: The answer has moderate relevance but contains inaccuracies.
Score 7: The answer aligns with the reference but has minor omissions.
Score 10: The answer is completely accurate and aligns perfectly with the reference.
Only respond with a numerical score`

// OpenAIEvaluator scores responses with an LLM judge over OpenAI's chat
// API, using a fixed accuracy rubric at temperature zero.
type OpenAIEvaluator struct {
	client        *openai.Client
	model         string
	questionAsked string
	trueAnswer    string
	logger        *slog.Logger
}

// NewOpenAIEvaluator creates the judge. The API key, question and
// reference answer are required.
func NewOpenAIEvaluator(cfg Config) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai evaluator: API key is required")
	}
	if cfg.QuestionAsked == "" || cfg.TrueAnswer == "" {
		return nil, errors.New("openai evaluator: question and reference answer are required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai evaluator: model name is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEvaluator{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		questionAsked: cfg.QuestionAsked,
		trueAnswer:    cfg.TrueAnswer,
		logger:        slog.Default(),
	}, nil
}

func (e *OpenAIEvaluator) Name() string {
	return "openai"
}

// Score judges the response against the reference answer. API failures
// and unparseable scores are logged and scored as MinScore so a single
// bad scoring call never aborts the sweep.
func (e *OpenAIEvaluator) Score(ctx context.Context, response string) int {
	prompt := fmt.Sprintf(`Compare the following response to the reference answer and score it based on accuracy:

Question: %s
Reference Answer: %s
Response to Evaluate: %s
%s

Provide only a numerical score (1, 3, 5, 7, or 10):`,
		e.questionAsked, e.trueAnswer, response, accuracyCriteria)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "scoring request failed", Cause: err})
		return MinScore
	}
	if len(resp.Choices) == 0 {
		e.warn(&Error{Evaluator: e.Name(), Message: "empty scoring response"})
		return MinScore
	}

	score, err := parseScore(resp.Choices[0].Message.Content)
	if err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "unparseable score", Cause: err})
		return MinScore
	}
	return score
}

func (e *OpenAIEvaluator) warn(err *Error) {
	e.logger.Warn("evaluation failed, using minimum score", "error", err)
}

// parseScore extracts a rubric score from the judge's reply. Values
// outside {1,3,5,7,10} are rejected.
func parseScore(text string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", text, err)
	}
	if !RubricScores[score] {
		return 0, fmt.Errorf("score %d outside rubric", score)
	}
	return score, nil
}
