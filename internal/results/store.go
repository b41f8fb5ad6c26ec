// Package results persists one immutable record per executed trial.
// Concurrent trials write to disjoint keys, so stores need no locking for
// correctness; re-running a configuration at the same version finds the
// existing keys and skips them.
package results

import (
	"context"
	"fmt"
	"strings"

	"github.com/needlebench/needlebench/pkg/models"
)

// Store persists trial results and, optionally, the raw assembled
// contexts alongside them.
type Store interface {
	// Put writes the result record. Writing the same key twice is
	// last-write-wins; records are never duplicated.
	Put(ctx context.Context, result *models.TrialResult) error

	// PutContext writes the raw assembled context under the result's key.
	PutContext(ctx context.Context, result *models.TrialResult, contextText string) error

	// Exists reports whether a record for the given trial identity is
	// already persisted, used to skip completed points on reruns.
	Exists(ctx context.Context, model string, point models.TestPoint, version int) (bool, error)

	Close() error
}

// Key derives the collision-free trial identity string:
// model name (dots replaced), context length, depth in basis points, and
// results version.
func Key(model string, point models.TestPoint, version int) string {
	sanitized := strings.ReplaceAll(model, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "/", "_")
	return fmt.Sprintf("%s_len_%d_depth_%d_v%d", sanitized, point.ContextLength, point.DepthBasisPoints(), version)
}
