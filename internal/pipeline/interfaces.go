package pipeline

import (
	"context"

	"github.com/threadlens/v2ex-analyst/internal/models"
)

// TopicFetcher abstracts the retrieval client.
type TopicFetcher interface {
	FetchTopic(ctx context.Context, topicID int64) (*models.Topic, error)
	FetchReplies(ctx context.Context, topicID int64, maxPages int) ([]models.Page, error)
}

// Analyzer abstracts the analysis orchestrator.
type Analyzer interface {
	Analyze(ctx context.Context, aggregatedText string, topicID int64) (*models.AnalysisReport, error)
}

// ReportWriter abstracts the report emitter.
type ReportWriter interface {
	Write(report *models.AnalysisReport) (string, error)
}
