// Package report persists analysis reports as files keyed by topic id.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/threadlens/v2ex-analyst/internal/models"
)

type Emitter struct {
	outputDir string
}

func NewEmitter(outputDir string) *Emitter {
	return &Emitter{outputDir: outputDir}
}

// PathFor returns the deterministic output path for a topic id.
func (e *Emitter) PathFor(topicID int64) string {
	return filepath.Join(e.outputDir, fmt.Sprintf("analysis_%d.md", topicID))
}

// Write persists the report, creating the output directory if absent and
// overwriting any prior file for the same topic id. Filesystem failures are
// surfaced as ErrWrite and never retried.
func (e *Emitter) Write(report *models.AnalysisReport) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", models.ErrWrite, e.outputDir, err)
	}

	path := e.PathFor(report.TopicID)
	content := fmt.Sprintf("# V2EX Analysis %d\n\n%s\n", report.TopicID, report.Body)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", models.ErrWrite, path, err)
	}

	slog.Info("Saved analysis report", "topic_id", report.TopicID, "path", path)
	return path, nil
}
