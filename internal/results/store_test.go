package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/needlebench/needlebench/pkg/models"
)

func sampleResult() *models.TrialResult {
	return &models.TrialResult{
		Model:               "gpt-4.1-mini",
		ContextLength:       1000,
		DepthPercent:        33.33,
		Version:             1,
		Evaluator:           "openai",
		Needle:              "The answer is X.",
		ModelResponse:       "X",
		Score:               10,
		TestDurationSeconds: 1.5,
		TestTimestampUTC:    "2026-08-31T00:00:00Z",
	}
}

func TestKeyFormat(t *testing.T) {
	point := models.TestPoint{ContextLength: 1000, DepthPercent: 33.33}
	got := Key("gpt-4.1-mini", point, 2)
	want := "gpt-4_1-mini_len_1000_depth_3333_v2"
	if got != want {
		t.Fatalf("expected key %q, got %q", want, got)
	}
}

func TestKeyDisambiguatesCloseDepths(t *testing.T) {
	a := Key("m", models.TestPoint{ContextLength: 1000, DepthPercent: 33.33}, 1)
	b := Key("m", models.TestPoint{ContextLength: 1000, DepthPercent: 33.3}, 1)
	if a == b {
		t.Fatalf("keys for different depths must differ: %q", a)
	}
}

func TestFSStorePutAndExists(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(filepath.Join(dir, "results"), filepath.Join(dir, "contexts"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	res := sampleResult()

	exists, err := store.Exists(ctx, res.Model, res.Point(), res.Version)
	if err != nil || exists {
		t.Fatalf("expected no record before put, got exists=%v err=%v", exists, err)
	}

	if err := store.Put(ctx, res); err != nil {
		t.Fatalf("put: %v", err)
	}

	exists, err = store.Exists(ctx, res.Model, res.Point(), res.Version)
	if err != nil || !exists {
		t.Fatalf("expected record after put, got exists=%v err=%v", exists, err)
	}

	// A different version is a different key.
	exists, err = store.Exists(ctx, res.Model, res.Point(), 2)
	if err != nil || exists {
		t.Fatalf("version should be part of the key, got exists=%v err=%v", exists, err)
	}
}

func TestFSStorePutIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	resultsDir := filepath.Join(dir, "results")
	store, err := NewFSStore(resultsDir, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	res := sampleResult()
	for i := 0; i < 3; i++ {
		if err := store.Put(ctx, res); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("repeated puts must not duplicate records, found %d files", len(entries))
	}
}

func TestFSStoreRecordShape(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	res := sampleResult()
	if err := store.Put(context.Background(), res); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, Key(res.Model, res.Point(), res.Version)+"_results.json"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var decoded models.TrialResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if decoded != *res {
		t.Fatalf("record round-trip mismatch:\n got %+v\nwant %+v", decoded, *res)
	}
}

func TestFSStoreSavesContext(t *testing.T) {
	dir := t.TempDir()
	contextsDir := filepath.Join(dir, "contexts")
	store, err := NewFSStore(filepath.Join(dir, "results"), contextsDir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	res := sampleResult()
	if err := store.PutContext(context.Background(), res, "the haystack"); err != nil {
		t.Fatalf("put context: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(contextsDir, Key(res.Model, res.Point(), res.Version)+"_context.txt"))
	if err != nil {
		t.Fatalf("read context: %v", err)
	}
	if string(data) != "the haystack" {
		t.Fatalf("context mismatch: %q", data)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trials.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	res := sampleResult()

	exists, err := store.Exists(ctx, res.Model, res.Point(), res.Version)
	if err != nil || exists {
		t.Fatalf("expected no record before put, got exists=%v err=%v", exists, err)
	}

	if err := store.Put(ctx, res); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Upsert, not duplicate.
	if err := store.Put(ctx, res); err != nil {
		t.Fatalf("second put: %v", err)
	}

	exists, err = store.Exists(ctx, res.Model, res.Point(), res.Version)
	if err != nil || !exists {
		t.Fatalf("expected record after put, got exists=%v err=%v", exists, err)
	}

	if err := store.PutContext(ctx, res, "the haystack"); err != nil {
		t.Fatalf("put context: %v", err)
	}
}
