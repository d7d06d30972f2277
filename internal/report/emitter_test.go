package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/threadlens/v2ex-analyst/internal/models"
)

func testReport(body string) *models.AnalysisReport {
	return &models.AnalysisReport{
		TopicID:     12345,
		GeneratedAt: time.Now().UTC(),
		Body:        body,
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "analysis_outputs")
	e := NewEmitter(dir)

	path, err := e.Write(testReport("report body"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if path != filepath.Join(dir, "analysis_12345.md") {
		t.Errorf("Unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading written file: %v", err)
	}
	want := "# V2EX Analysis 12345\n\nreport body\n"
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, string(data))
	}
}

func TestWrite_OverwritesOnRerun(t *testing.T) {
	dir := t.TempDir()
	e := NewEmitter(dir)

	if _, err := e.Write(testReport("first run")); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	path, err := e.Write(testReport("second run"))
	if err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := "# V2EX Analysis 12345\n\nsecond run\n"
	if string(data) != want {
		t.Errorf("Rerun should overwrite, got %q", string(data))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected a single file after rerun, got %d", len(entries))
	}
}

func TestWrite_CreatesOutputDirIdempotently(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	e := NewEmitter(dir)

	if _, err := e.Write(testReport("a")); err != nil {
		t.Fatalf("Write with missing dir failed: %v", err)
	}
	if _, err := e.Write(testReport("b")); err != nil {
		t.Fatalf("Write with existing dir failed: %v", err)
	}
}

func TestWrite_FilesystemFailure(t *testing.T) {
	// A file where the output directory should be forces MkdirAll to fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewEmitter(blocker)
	_, err := e.Write(testReport("body"))
	if !errors.Is(err, models.ErrWrite) {
		t.Fatalf("Expected ErrWrite, got %v", err)
	}
}

func TestPathFor_Deterministic(t *testing.T) {
	e := NewEmitter("analysis_outputs")
	if e.PathFor(42) != e.PathFor(42) {
		t.Error("PathFor must be deterministic")
	}
	if e.PathFor(42) == e.PathFor(43) {
		t.Error("Distinct topics must map to distinct paths")
	}
}
