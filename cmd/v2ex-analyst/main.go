package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/threadlens/v2ex-analyst/internal/analyst"
	"github.com/threadlens/v2ex-analyst/internal/config"
	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/pipeline"
	"github.com/threadlens/v2ex-analyst/internal/report"
	"github.com/threadlens/v2ex-analyst/internal/v2ex"
)

var (
	topicID   int64
	maxPages  int
	maxChars  int
	outputDir string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "v2ex-analyst",
	Short:         "v2ex-analyst - analyze V2EX discussion threads with Gemini",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch a topic with its replies and write an analysis report",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int64Var(&topicID, "topic-id", 0, "V2EX topic id (required)")
	_ = analyzeCmd.MarkFlagRequired("topic-id")
	analyzeCmd.Flags().IntVar(&maxPages, "max-pages", 1, "max reply pages to fetch (0 = unbounded)")
	analyzeCmd.Flags().IntVar(&maxChars, "max-chars", 0, "aggregation character budget (overrides ANALYSIS_MAX_CHARS)")
	analyzeCmd.Flags().StringVar(&outputDir, "output-dir", "", "report directory (overrides ANALYSIS_OUTPUT_DIR)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall pipeline deadline")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if maxChars > 0 {
		cfg.MaxChars = maxChars
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	submitter, err := analyst.NewGemini(ctx, cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(
		v2ex.New(cfg),
		analyst.NewOrchestrator(submitter, cfg.AnalysisTimeout),
		report.NewEmitter(cfg.OutputDir),
		maxPages,
		cfg.MaxChars,
	)

	res, err := p.Run(ctx, topicID)
	if err != nil {
		slog.Error("Pipeline failed", "topic_id", topicID, "kind", errorKind(err), "error", err)
		return err
	}

	slog.Info("Analysis complete",
		"topic_id", topicID,
		"path", res.OutputPath,
		"replies", len(res.Thread.Replies),
		"truncated", res.Thread.Truncated)
	return nil
}

// errorKind maps a pipeline failure to its taxonomy name for operators.
func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrAuth):
		return "auth"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrConfig):
		return "config"
	case errors.Is(err, models.ErrAnalysis):
		return "analysis"
	case errors.Is(err, models.ErrWrite):
		return "io"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, models.ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
