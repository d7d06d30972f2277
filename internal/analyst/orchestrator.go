// Package analyst submits aggregated threads to the external analysis
// capability and turns its output into reports.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/util"
)

// Submitter is the narrow interface over the analysis capability. Its own
// internals (model selection, transport) are a black box here.
type Submitter interface {
	Submit(ctx context.Context, text, correlationID string) (string, error)
}

// maxAttempts bounds retries against the analysis capability.
const maxAttempts = 3

type Orchestrator struct {
	submitter Submitter
	timeout   time.Duration
	attempts  int
	backoff   util.BackoffConfig
}

func NewOrchestrator(s Submitter, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		submitter: s,
		timeout:   timeout,
		attempts:  maxAttempts,
		backoff:   util.DefaultBackoff,
	}
}

// Analyze submits the aggregated text and wraps the returned body into a
// report. Empty output is a failure, never an empty report. Each call gets
// its own timeout; recoverable failures are retried with backoff.
func (o *Orchestrator) Analyze(ctx context.Context, aggregatedText string, topicID int64) (*models.AnalysisReport, error) {
	correlationID := fmt.Sprintf("topic-%d", topicID)

	var body string
	err := util.RetryWithBackoff(ctx, o.attempts, o.backoff, func(attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		out, err := o.submitter.Submit(callCtx, aggregatedText, correlationID)
		if err != nil {
			// A cancelled parent is not recoverable; a per-call timeout is.
			if ctx.Err() != nil {
				return util.Permanent(ctx.Err())
			}
			slog.Warn("Analysis attempt failed", "topic_id", topicID, "attempt", attempt+1, "error", err)
			return err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			slog.Warn("Analysis returned empty output", "topic_id", topicID, "attempt", attempt+1)
			return errors.New("empty analysis output")
		}
		body = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: topic %d: %v", models.ErrAnalysis, topicID, err)
	}

	return &models.AnalysisReport{
		TopicID:     topicID,
		GeneratedAt: time.Now().UTC(),
		Body:        body,
	}, nil
}
