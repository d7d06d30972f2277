// Package pipeline runs the single-pass retrieval → aggregation → analysis →
// emission flow for one topic.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/threadlens/v2ex-analyst/internal/aggregator"
	"github.com/threadlens/v2ex-analyst/internal/config"
	"github.com/threadlens/v2ex-analyst/internal/models"
)

// Stage identifies where in the linear flow a run currently is. No stage is
// ever re-entered.
type Stage string

const (
	StageFetchingTopic   Stage = "FETCHING_TOPIC"
	StageFetchingReplies Stage = "FETCHING_REPLIES"
	StageAggregating     Stage = "AGGREGATING"
	StageAnalyzing       Stage = "ANALYZING"
	StageWriting         Stage = "WRITING"
	StageDone            Stage = "DONE"
)

// StageError ties a failure to the stage and topic where it happened.
type StageError struct {
	Stage   Stage
	TopicID int64
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for topic %d: %v", e.Stage, e.TopicID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is the outcome of one run. On failure it still carries whatever
// earlier stages produced, so the caller can decide on a degraded analysis.
type Result struct {
	Stage      Stage // stage reached; StageDone on success
	Pages      []models.Page
	Thread     *models.AggregatedThread
	Report     *models.AnalysisReport
	OutputPath string
}

type Pipeline struct {
	fetcher  TopicFetcher
	analyzer Analyzer
	writer   ReportWriter
	maxPages int
	maxChars int
}

func New(f TopicFetcher, a Analyzer, w ReportWriter, maxPages, maxChars int) *Pipeline {
	return &Pipeline{
		fetcher:  f,
		analyzer: a,
		writer:   w,
		maxPages: maxPages,
		maxChars: maxChars,
	}
}

// Run executes the pipeline for one topic. Cancellation is honored between
// stages and inside every network call; on any failure no output file is
// written.
func (p *Pipeline) Run(ctx context.Context, topicID int64) (*Result, error) {
	// Misconfiguration fails fast, before any network call.
	if p.maxChars < config.MinMaxChars {
		return nil, fmt.Errorf("%w: aggregation budget %d is below the minimum %d", models.ErrConfig, p.maxChars, config.MinMaxChars)
	}
	if topicID <= 0 {
		return nil, fmt.Errorf("%w: topic id must be positive, got %d", models.ErrConfig, topicID)
	}

	res := &Result{Stage: StageFetchingTopic}
	fail := func(stage Stage, err error) (*Result, error) {
		res.Stage = stage
		return res, &StageError{Stage: stage, TopicID: topicID, Err: err}
	}

	topic, err := p.fetcher.FetchTopic(ctx, topicID)
	if err != nil {
		return fail(StageFetchingTopic, err)
	}
	slog.Info("Fetched topic", "topic_id", topicID, "title", topic.Title, "reply_count", topic.ReplyCount)

	if err := ctx.Err(); err != nil {
		return fail(StageFetchingReplies, err)
	}
	res.Stage = StageFetchingReplies
	pages, err := p.fetcher.FetchReplies(ctx, topicID, p.maxPages)
	res.Pages = pages // kept even when the fetch failed partway
	if err != nil {
		return fail(StageFetchingReplies, err)
	}
	slog.Info("Fetched replies", "topic_id", topicID, "pages", len(pages))

	if err := ctx.Err(); err != nil {
		return fail(StageAggregating, err)
	}
	res.Stage = StageAggregating
	thread, err := aggregator.Aggregate(topic, pages, p.maxChars)
	if err != nil {
		return fail(StageAggregating, err)
	}
	res.Thread = thread

	if err := ctx.Err(); err != nil {
		return fail(StageAnalyzing, err)
	}
	res.Stage = StageAnalyzing
	report, err := p.analyzer.Analyze(ctx, thread.Text, topicID)
	if err != nil {
		return fail(StageAnalyzing, err)
	}
	res.Report = report

	if err := ctx.Err(); err != nil {
		return fail(StageWriting, err)
	}
	res.Stage = StageWriting
	path, err := p.writer.Write(report)
	if err != nil {
		return fail(StageWriting, err)
	}
	res.OutputPath = path

	res.Stage = StageDone
	return res, nil
}
