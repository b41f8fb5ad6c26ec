package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/needlebench/needlebench/pkg/models"
)

// FSStore writes one JSON file per trial under resultsDir and one text
// file per saved context under contextsDir. Writes are atomic
// (temp file + rename), so a run stopped mid-flight never leaves a
// half-written record behind.
type FSStore struct {
	resultsDir  string
	contextsDir string
}

// NewFSStore creates the directories if needed and returns the store.
func NewFSStore(resultsDir, contextsDir string) (*FSStore, error) {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	if contextsDir != "" {
		if err := os.MkdirAll(contextsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create contexts dir: %w", err)
		}
	}
	return &FSStore{resultsDir: resultsDir, contextsDir: contextsDir}, nil
}

func (s *FSStore) resultPath(model string, point models.TestPoint, version int) string {
	return filepath.Join(s.resultsDir, Key(model, point, version)+"_results.json")
}

// Put writes the result record atomically. Existing records for the same
// key are replaced, never duplicated.
func (s *FSStore) Put(ctx context.Context, result *models.TrialResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return atomicWrite(s.resultPath(result.Model, result.Point(), result.Version), data)
}

// PutContext writes the raw assembled context next to the result.
func (s *FSStore) PutContext(ctx context.Context, result *models.TrialResult, contextText string) error {
	if s.contextsDir == "" {
		return nil
	}
	path := filepath.Join(s.contextsDir, Key(result.Model, result.Point(), result.Version)+"_context.txt")
	return atomicWrite(path, []byte(contextText))
}

// Exists reports whether the result file for this trial identity is on disk.
func (s *FSStore) Exists(ctx context.Context, model string, point models.TestPoint, version int) (bool, error) {
	_, err := os.Stat(s.resultPath(model, point, version))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FSStore) Close() error {
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
