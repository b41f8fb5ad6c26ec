// Package sweep derives the ordered set of test points a benchmark run
// executes, from either explicit value lists or min/max/interval specs.
package sweep

import (
	"fmt"
	"math"
	"sort"

	"github.com/needlebench/needlebench/pkg/models"
)

// Distribution controls how depth percents are spaced between min and max.
type Distribution string

const (
	// DistributionLinear spaces depths evenly.
	DistributionLinear Distribution = "linear"

	// DistributionSigmoid concentrates depths toward the middle of the
	// range, sampling the 50% region more densely than the extremes.
	// Endpoints are always included exactly.
	DistributionSigmoid Distribution = "sigmoid"
)

// Spec describes one axis pair of the benchmark matrix. Explicit lists,
// when non-empty, override the min/max/interval derivation entirely.
type Spec struct {
	ContextLengths   []int
	ContextMin       int
	ContextMax       int
	ContextIntervals int

	DepthPercents  []float64
	DepthMin       float64
	DepthMax       float64
	DepthIntervals int
	Distribution   Distribution
}

// edge squashes the open interval used by the inverse-logistic depth
// curve away from its asymptotes so the endpoints stay finite.
const edge = 0.01

// Generate turns a Spec into the full cartesian product of
// (context_length, depth_percent), ordered context-length-major. It is a
// pure function: identical specs always produce identical output.
//
// When an interval count is 1 the derived axis collapses to exactly one
// value equal to the axis minimum.
func Generate(spec Spec) ([]models.TestPoint, error) {
	lengths, err := contextLengths(spec)
	if err != nil {
		return nil, err
	}
	depths, err := depthPercents(spec)
	if err != nil {
		return nil, err
	}

	points := make([]models.TestPoint, 0, len(lengths)*len(depths))
	for _, l := range lengths {
		for _, d := range depths {
			points = append(points, models.TestPoint{ContextLength: l, DepthPercent: d})
		}
	}
	return points, nil
}

// contextLengths resolves the context-length axis: the explicit list
// (deduplicated, sorted ascending) or an inclusive integer linspace.
func contextLengths(spec Spec) ([]int, error) {
	if len(spec.ContextLengths) > 0 {
		return dedupeSorted(spec.ContextLengths)
	}

	if spec.ContextIntervals < 1 {
		return nil, fmt.Errorf("context_lengths: num_intervals must be >= 1, got %d", spec.ContextIntervals)
	}
	if spec.ContextMin <= 0 {
		return nil, fmt.Errorf("context_lengths: min must be positive, got %d", spec.ContextMin)
	}
	if spec.ContextMin > spec.ContextMax {
		return nil, fmt.Errorf("context_lengths: min %d exceeds max %d", spec.ContextMin, spec.ContextMax)
	}

	if spec.ContextIntervals == 1 {
		return []int{spec.ContextMin}, nil
	}

	derived := make([]int, 0, spec.ContextIntervals)
	span := float64(spec.ContextMax - spec.ContextMin)
	for i := 0; i < spec.ContextIntervals; i++ {
		t := float64(i) / float64(spec.ContextIntervals-1)
		derived = append(derived, spec.ContextMin+int(math.Round(span*t)))
	}
	return dedupeSorted(derived)
}

// depthPercents resolves the depth axis. Every value is clamped to
// [0, 100] regardless of origin.
func depthPercents(spec Spec) ([]float64, error) {
	if len(spec.DepthPercents) > 0 {
		out := make([]float64, len(spec.DepthPercents))
		for i, d := range spec.DepthPercents {
			out[i] = clampDepth(d)
		}
		return out, nil
	}

	if spec.DepthIntervals < 1 {
		return nil, fmt.Errorf("document_depth_percents: num_intervals must be >= 1, got %d", spec.DepthIntervals)
	}
	if spec.DepthMin > spec.DepthMax {
		return nil, fmt.Errorf("document_depth_percents: min %.2f exceeds max %.2f", spec.DepthMin, spec.DepthMax)
	}

	min := clampDepth(spec.DepthMin)
	max := clampDepth(spec.DepthMax)
	if spec.DepthIntervals == 1 {
		return []float64{min}, nil
	}

	n := spec.DepthIntervals
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		var s float64
		switch spec.Distribution {
		case DistributionSigmoid:
			s = sigmoidFraction(t)
		case DistributionLinear, "":
			s = t
		default:
			return nil, fmt.Errorf("document_depth_percents: unknown distribution %q", spec.Distribution)
		}
		out = append(out, clampDepth(min+(max-min)*s))
	}
	return out, nil
}

// sigmoidFraction maps t in [0,1] onto [0,1] through a normalized inverse
// logistic. The curve is flattest around t=0.5, so evenly spaced inputs
// land densest around the middle of the output range. Symmetric:
// f(1-t) == 1-f(t). The endpoints are returned exactly: logit(edge) and
// -logit(1-edge) differ by a few ulps, so the normalized form alone
// leaves f(0) a hair below zero.
func sigmoidFraction(t float64) float64 {
	switch t {
	case 0:
		return 0
	case 1:
		return 1
	}
	u := edge + t*(1-2*edge)
	scale := logit(1 - edge)
	return (logit(u) + scale) / (2 * scale)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampDepth(d float64) float64 {
	return math.Min(100, math.Max(0, d))
}

func dedupeSorted(values []int) ([]int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("context_lengths: empty list")
	}
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			return nil, fmt.Errorf("context_lengths: values must be positive, got %d", v)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}
