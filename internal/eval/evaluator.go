// Package eval scores model responses against a reference answer. One bad
// scoring call never aborts a sweep: evaluators log the cause and return
// the minimum rubric score instead of propagating failures.
package eval

import (
	"context"
	"fmt"
	"strings"
)

// MinScore is the sentinel returned when an evaluator fails internally.
const MinScore = 1

// RubricScores is the closed set of valid accuracy scores.
var RubricScores = map[int]bool{1: true, 3: true, 5: true, 7: true, 10: true}

// Evaluator scores a model response. Score never panics and never
// returns a value outside the rubric: internal failures are logged and
// scored as MinScore.
type Evaluator interface {
	// Name returns the stable lowercase evaluator identifier.
	Name() string

	// Score rates the response from 1 (unrelated) to 10 (fully accurate).
	Score(ctx context.Context, response string) int
}

// Error is an evaluator-internal failure: an API error or an unparseable
// score. It is logged at the evaluator boundary, never raised past it.
type Error struct {
	Evaluator string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s evaluator: %s: %v", e.Evaluator, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s evaluator: %s", e.Evaluator, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Config selects and parameterizes an evaluator. Credentials are threaded
// in from configuration loading; evaluators never read the environment.
type Config struct {
	Evaluator string
	Model     string
	APIKey    string
	BaseURL   string

	// QuestionAsked and TrueAnswer are the retrieval question and
	// reference answer the response is judged against.
	QuestionAsked string
	TrueAnswer    string

	// EvalSet names the LangSmith evaluation set (langsmith only).
	EvalSet string
}

// New resolves an evaluator from the closed set. Unknown evaluator names
// are a configuration error naming the invalid value.
func New(cfg Config) (Evaluator, error) {
	switch strings.ToLower(cfg.Evaluator) {
	case "openai":
		return NewOpenAIEvaluator(cfg)
	case "langsmith":
		return NewLangSmithEvaluator(cfg)
	default:
		return nil, fmt.Errorf("invalid evaluator: %q (expected openai or langsmith)", cfg.Evaluator)
	}
}
