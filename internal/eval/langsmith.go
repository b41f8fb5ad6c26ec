package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// defaultLangSmithURL is the hosted LangSmith API endpoint.
const defaultLangSmithURL = "https://api.smith.langchain.com"

// LangSmithEvaluator delegates scoring to a LangSmith evaluation set.
// The response is submitted against the configured eval set and the
// service's accuracy feedback comes back as the trial score.
type LangSmithEvaluator struct {
	baseURL string
	apiKey  string
	evalSet string
	client  *http.Client
	logger  *slog.Logger
}

// NewLangSmithEvaluator creates a LangSmith-backed evaluator. The API key
// and evaluation set name are required.
func NewLangSmithEvaluator(cfg Config) (*LangSmithEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("langsmith evaluator: API key is required")
	}
	if cfg.EvalSet == "" {
		return nil, errors.New("langsmith evaluator: eval set name is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLangSmithURL
	}

	return &LangSmithEvaluator{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		evalSet: cfg.EvalSet,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}, nil
}

func (e *LangSmithEvaluator) Name() string {
	return "langsmith"
}

// Score submits the response for evaluation and returns the service's
// score, or MinScore (logged) on any failure.
func (e *LangSmithEvaluator) Score(ctx context.Context, response string) int {
	payload, err := json.Marshal(map[string]string{
		"eval_set": e.evalSet,
		"output":   response,
	})
	if err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "encode request", Cause: err})
		return MinScore
	}

	url := e.baseURL + "/api/v1/evaluations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "build request", Cause: err})
		return MinScore
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "evaluation request failed", Cause: err})
		return MinScore
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.warn(&Error{Evaluator: e.Name(), Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)})
		return MinScore
	}

	var body struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		e.warn(&Error{Evaluator: e.Name(), Message: "decode evaluation response", Cause: err})
		return MinScore
	}
	if !RubricScores[body.Score] {
		e.warn(&Error{Evaluator: e.Name(), Message: fmt.Sprintf("score %d outside rubric", body.Score)})
		return MinScore
	}
	return body.Score
}

func (e *LangSmithEvaluator) warn(err *Error) {
	e.logger.Warn("evaluation failed, using minimum score", "error", err)
}
