// Package runner orchestrates a benchmark run: for every test point it
// assembles a context, queries the model backend, scores the response and
// persists one immutable trial record, with bounded concurrency and
// per-trial failure isolation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/needlebench/needlebench/internal/eval"
	"github.com/needlebench/needlebench/internal/haystack"
	"github.com/needlebench/needlebench/internal/observability"
	"github.com/needlebench/needlebench/internal/providers"
	"github.com/needlebench/needlebench/internal/results"
	"github.com/needlebench/needlebench/pkg/models"
)

// Config carries the per-run orchestration knobs. Values are validated by
// the configuration layer before they reach the runner.
type Config struct {
	Needle  models.Needle
	Version int

	// Buffer is the token count reserved off each context for system
	// prompt and output overhead.
	Buffer int

	// NumConcurrent bounds how many trials run simultaneously. Excess
	// trials queue on the semaphore rather than fanning out.
	NumConcurrent int

	// SleepBetweenDispatches inserts a cooperative delay between
	// successive trial dispatches to stay under external rate limits.
	SleepBetweenDispatches time.Duration

	// RequestTimeout caps each backend/evaluator call. A timeout is
	// treated like any other provider failure: the trial is sentineled
	// and the run continues.
	RequestTimeout time.Duration

	SaveResults  bool
	SaveContexts bool

	// PrintOngoingStatus reports progress point-by-point in sweep order
	// regardless of completion order.
	PrintOngoingStatus bool
}

// Summary is the outcome of one run.
type Summary struct {
	Status     models.RunStatus
	Total      int
	Succeeded  int
	Sentineled int
	Skipped    int
}

// Runner executes trials. All collaborators are injected; the runner
// holds no mutable state between runs.
type Runner struct {
	backend   providers.ModelBackend
	evaluator eval.Evaluator
	assembler *haystack.Assembler
	store     results.Store
	metrics   *observability.Metrics
	logger    *slog.Logger
	out       io.Writer
	cfg       Config
}

// New wires a Runner. logger may be nil (slog.Default is used) and
// metrics may be nil (nothing is recorded).
func New(backend providers.ModelBackend, evaluator eval.Evaluator, assembler *haystack.Assembler, store results.Store, metrics *observability.Metrics, logger *slog.Logger, cfg Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NumConcurrent <= 0 {
		cfg.NumConcurrent = 1
	}
	return &Runner{
		backend:   backend,
		evaluator: evaluator,
		assembler: assembler,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		out:       os.Stdout,
		cfg:       cfg,
	}
}

// SetOutput redirects progress reporting (used by tests).
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Run executes every test point. Per-trial failures are sentineled and
// recorded, never propagated: the run finishes PartiallyFailed if any
// trial sentineled, Completed otherwise. Cancelling ctx stops the run
// between dispatches; trials already in flight finish and their records
// remain intact.
func (r *Runner) Run(ctx context.Context, points []models.TestPoint) (*Summary, error) {
	runID := uuid.NewString()
	r.logger.Info("run starting",
		"run_id", runID,
		"provider", r.backend.Name(),
		"model", r.backend.Model(),
		"evaluator", r.evaluator.Name(),
		"points", len(points),
		"concurrency", r.cfg.NumConcurrent,
	)

	rep := newReporter(r.out, len(points), r.cfg.PrintOngoingStatus)
	sem := make(chan struct{}, r.cfg.NumConcurrent)

	var wg sync.WaitGroup
	var succeeded, sentineled, skipped atomic.Int64

	dispatched := 0
	for i, point := range points {
		if ctx.Err() != nil {
			break
		}

		exists, err := r.store.Exists(ctx, r.backend.Model(), point, r.cfg.Version)
		if err != nil {
			r.logger.Warn("result lookup failed, running trial anyway", "run_id", runID, "point", point.String(), "error", err)
		}
		if exists {
			skipped.Add(1)
			r.metrics.ObserveTrial(r.backend.Name(), r.backend.Model(), "skipped", 0)
			rep.done(i, fmt.Sprintf("[%d/%d] %s skipped (already recorded)", i+1, len(points), point))
			continue
		}

		// Cooperative pacing between dispatches, not completions.
		if dispatched > 0 && r.cfg.SleepBetweenDispatches > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.SleepBetweenDispatches):
			}
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		dispatched++
		wg.Add(1)
		go func(idx int, p models.TestPoint) {
			defer wg.Done()
			defer func() { <-sem }()

			res := r.runTrial(ctx, runID, p)
			if res.Sentineled() {
				sentineled.Add(1)
				r.metrics.ObserveTrial(r.backend.Name(), r.backend.Model(), "sentineled", time.Duration(res.TestDurationSeconds*float64(time.Second)))
			} else {
				succeeded.Add(1)
				r.metrics.ObserveTrial(r.backend.Name(), r.backend.Model(), "ok", time.Duration(res.TestDurationSeconds*float64(time.Second)))
			}
			rep.done(idx, trialLine(idx, len(points), res))
		}(i, point)
	}

	wg.Wait()

	summary := &Summary{
		Total:      len(points),
		Succeeded:  int(succeeded.Load()),
		Sentineled: int(sentineled.Load()),
		Skipped:    int(skipped.Load()),
	}
	if summary.Sentineled > 0 {
		summary.Status = models.RunPartiallyFailed
	} else {
		summary.Status = models.RunCompleted
	}

	r.logger.Info("run finished",
		"run_id", runID,
		"status", string(summary.Status),
		"succeeded", summary.Succeeded,
		"sentineled", summary.Sentineled,
		"skipped", summary.Skipped,
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// runTrial executes one trial end to end. Every internal failure is
// converted into a sentineled result so the sweep keeps going.
func (r *Runner) runTrial(ctx context.Context, runID string, p models.TestPoint) *models.TrialResult {
	start := time.Now()
	res := &models.TrialResult{
		Model:         r.backend.Model(),
		ContextLength: p.ContextLength,
		DepthPercent:  p.DepthPercent,
		Version:       r.cfg.Version,
		Evaluator:     r.evaluator.Name(),
		Needle:        strings.Join(r.cfg.Needle.Texts, "\n"),
	}

	contextText, err := r.assembler.Assemble(r.cfg.Needle.Texts, p.ContextLength, p.DepthPercent, r.cfg.Buffer)
	if err != nil {
		r.sentinel(res, runID, p, "assembly failed", err)
	} else {
		// Completion and scoring each get the full request timeout. A slow
		// completion must not eat into the evaluator's budget.
		cctx, cancel := r.callContext(ctx)
		llmStart := time.Now()
		response, err := r.backend.Complete(cctx, contextText, r.cfg.Needle.RetrievalQuestion)
		cancel()
		r.metrics.ObserveLLMRequest(r.backend.Name(), r.backend.Model(), time.Since(llmStart))
		if err != nil {
			r.sentinel(res, runID, p, "completion failed", err)
		} else {
			res.ModelResponse = response
			ectx, cancel := r.callContext(ctx)
			res.Score = r.evaluator.Score(ectx, response)
			cancel()
			r.metrics.ObserveScore(r.evaluator.Name(), res.Score)
		}
	}

	res.TestDurationSeconds = time.Since(start).Seconds()
	res.TestTimestampUTC = models.Timestamp(time.Now())

	if r.cfg.SaveContexts && contextText != "" {
		if err := r.store.PutContext(ctx, res, contextText); err != nil {
			r.logger.Warn("saving context failed", "run_id", runID, "point", p.String(), "error", err)
		}
	}
	if r.cfg.SaveResults {
		if err := r.store.Put(ctx, res); err != nil {
			r.logger.Error("saving result failed", "run_id", runID, "point", p.String(), "error", err)
		}
	}
	return res
}

// callContext derives a per-call timeout context for a single outbound
// request.
func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.RequestTimeout)
	}
	return ctx, func() {}
}

// sentinel marks the trial failed: minimum score, reason preserved in the
// persisted record.
func (r *Runner) sentinel(res *models.TrialResult, runID string, p models.TestPoint, msg string, err error) {
	res.Score = eval.MinScore
	res.Error = trialErrorString(msg, err)
	r.logger.Warn("trial sentineled", "run_id", runID, "point", p.String(), "error", err)
}

func trialErrorString(msg string, err error) string {
	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		return fmt.Sprintf("%s: %s", msg, perr.Error())
	}
	return fmt.Sprintf("%s: %v", msg, err)
}

func trialLine(idx, total int, res *models.TrialResult) string {
	p := res.Point()
	if res.Sentineled() {
		return fmt.Sprintf("[%d/%d] %s sentineled: %s", idx+1, total, p, res.Error)
	}
	return fmt.Sprintf("[%d/%d] %s score=%d (%.1fs)", idx+1, total, p, res.Score, res.TestDurationSeconds)
}

// reporter prints per-point progress in deterministic sweep order:
// a completed point is held back until every earlier point has been
// reported.
type reporter struct {
	mu      sync.Mutex
	next    int
	pending map[int]string
	out     io.Writer
	enabled bool
}

func newReporter(out io.Writer, total int, enabled bool) *reporter {
	return &reporter{
		pending: make(map[int]string, total),
		out:     out,
		enabled: enabled,
	}
}

func (r *reporter) done(idx int, line string) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[idx] = line
	for {
		l, ok := r.pending[r.next]
		if !ok {
			break
		}
		fmt.Fprintln(r.out, l)
		delete(r.pending, r.next)
		r.next++
	}
}
