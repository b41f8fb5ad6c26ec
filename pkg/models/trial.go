package models

import (
	"fmt"
	"math"
	"time"
)

// RunStatus represents the lifecycle state of a benchmark run.
type RunStatus string

const (
	RunPending         RunStatus = "pending"
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunPartiallyFailed RunStatus = "partially_failed"
)

// TestPoint identifies one cell of the benchmark matrix: a total context
// length in tokens and the relative depth at which the needle is planted.
// Points are immutable once generated by the sweep.
type TestPoint struct {
	ContextLength int     `json:"context_length"`
	DepthPercent  float64 `json:"depth_percent"`
}

// DepthBasisPoints returns the depth as an integer number of basis points
// (depth * 100, rounded). Used in persisted keys so 33.33 and 33.3 never
// collide with each other through float formatting. Rounding keeps a
// product that lands at x.999... from keying one basis point low.
func (p TestPoint) DepthBasisPoints() int {
	return int(math.Round(p.DepthPercent * 100))
}

func (p TestPoint) String() string {
	return fmt.Sprintf("len=%d depth=%.2f%%", p.ContextLength, p.DepthPercent)
}

// Needle is the planted fact the model must retrieve, together with the
// question used to retrieve it and the reference answer the evaluator
// scores against. In multi-needle mode Texts carries every inserted
// statement and the reference pair represents the full expected synthesis.
type Needle struct {
	Texts             []string
	RetrievalQuestion string
	ReferenceAnswer   string
}

// TrialResult is the immutable record produced by one executed trial.
// Field names match the persisted JSON layout.
type TrialResult struct {
	Model         string  `json:"model"`
	ContextLength int     `json:"context_length"`
	DepthPercent  float64 `json:"depth_percent"`
	Version       int     `json:"version"`
	Evaluator     string  `json:"evaluator"`
	Needle        string  `json:"needle"`
	ModelResponse string  `json:"model_response"`
	Score         int     `json:"score"`

	// Error preserves the sentinel reason when the trial failed internally
	// and the score is the sentinel minimum. Empty on success.
	Error string `json:"error,omitempty"`

	TestDurationSeconds float64 `json:"test_duration_seconds"`
	TestTimestampUTC    string  `json:"test_timestamp_utc"`
}

// Point returns the test point this result was produced for.
func (r *TrialResult) Point() TestPoint {
	return TestPoint{ContextLength: r.ContextLength, DepthPercent: r.DepthPercent}
}

// Sentineled reports whether this result records an internal trial failure
// rather than a genuine model score.
func (r *TrialResult) Sentineled() bool {
	return r.Error != ""
}

// Timestamp formats t the way persisted records expect.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
