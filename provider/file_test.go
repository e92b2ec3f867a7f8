package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const cohortV1 = `{
	"id": "c1",
	"name": "Diabetes",
	"entry_criterion": {"id": "p1", "class_name": "CodelistPhenotype"}
}`

const cohortV2 = `{
	"id": "c1",
	"name": "Diabetes",
	"entry_criterion": {"id": "p1", "class_name": "CodelistPhenotype"},
	"inclusions": [{"id": "p2", "class_name": "AgePhenotype"}]
}`

func writeCohortFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cohort.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cohort file: %v", err)
	}
	return path
}

func TestFile_InitialLoad(t *testing.T) {
	path := writeCohortFile(t, t.TempDir(), cohortV1)

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	c := f.Cohort()
	if c == nil {
		t.Fatal("Cohort() = nil after initial load")
	}
	if c.ID != "c1" {
		t.Errorf("cohort.ID = %q; want %q", c.ID, "c1")
	}
	if got := c.PhenotypeCount(); got != 1 {
		t.Errorf("PhenotypeCount() = %d; want 1", got)
	}
}

func TestFile_InitialLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := NewFile(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("NewFile() error = nil; want error for missing file")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeCohortFile(t, dir, "{not json")
		if _, err := NewFile(path); err == nil {
			t.Error("NewFile() error = nil; want parse error")
		}
	})
}

func TestFile_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeCohortFile(t, dir, cohortV1)

	f, err := NewFile(path, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	reloaded := make(chan struct{}, 1)
	f.Subscribe(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.Stop()

	if err := os.WriteFile(path, []byte(cohortV2), 0o644); err != nil {
		t.Fatalf("rewrite cohort file: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := f.Cohort().PhenotypeCount(); got != 2 {
		t.Errorf("PhenotypeCount() = %d after reload; want 2", got)
	}
}

func TestFile_BadRewriteKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeCohortFile(t, dir, cohortV1)

	f, err := NewFile(path, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.Stop()

	var notified int
	f.Subscribe(func() { notified++ })

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("rewrite cohort file: %v", err)
	}

	// Give the watcher time to observe and reject the bad content.
	time.Sleep(300 * time.Millisecond)

	if notified != 0 {
		t.Errorf("notified = %d on bad reload; want 0", notified)
	}
	if c := f.Cohort(); c == nil || c.ID != "c1" {
		t.Error("previous snapshot lost after bad reload")
	}
}

func TestFile_StopIsIdempotent(t *testing.T) {
	path := writeCohortFile(t, t.TempDir(), cohortV1)

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	f.Stop()
	f.Stop()
}
