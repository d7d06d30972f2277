package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/validator"
)

// Config is the immutable process configuration. Components receive it (or
// the fields they need) at construction time and never read the environment
// themselves.
type Config struct {
	V2EXToken       string        `validate:"required"`
	APIBase         string        `validate:"required,url"`
	GeminiAPIKey    string        `validate:"required"`
	GeminiModel     string        `validate:"required"`
	AnalysisTimeout time.Duration `validate:"gt=0"`
	MaxChars        int           `validate:"gte=256"`
	OutputDir       string        `validate:"required"`
	DisableTracing  bool
}

// MinMaxChars is the smallest aggregation budget that can hold a topic
// header at all. Budgets below it are a configuration error.
const MinMaxChars = 256

func Load() (*Config, error) {
	token := os.Getenv("V2EX_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: V2EX_TOKEN environment variable is required but not set", models.ErrConfig)
	}

	apiBase := os.Getenv("V2EX_API_BASE")
	if apiBase == "" {
		apiBase = "https://www.v2ex.com/api/v2"
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		geminiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if geminiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable is required but not set", models.ErrConfig)
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-3-pro"
		slog.Info("Defaulting analysis model", "model", geminiModel)
	}

	analysisTimeoutStr := os.Getenv("ANALYSIS_TIMEOUT")
	if analysisTimeoutStr == "" {
		analysisTimeoutStr = "2m"
	}
	analysisTimeout, err := time.ParseDuration(analysisTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ANALYSIS_TIMEOUT %q: %v", models.ErrConfig, analysisTimeoutStr, err)
	}

	maxChars := 48000
	if v := os.Getenv("ANALYSIS_MAX_CHARS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ANALYSIS_MAX_CHARS %q: %v", models.ErrConfig, v, err)
		}
		maxChars = parsed
	}
	if maxChars < MinMaxChars {
		return nil, fmt.Errorf("%w: ANALYSIS_MAX_CHARS %d is below the minimum viable budget %d", models.ErrConfig, maxChars, MinMaxChars)
	}

	outputDir := os.Getenv("ANALYSIS_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "analysis_outputs"
	}

	disableTracing := false
	if v := os.Getenv("ANALYSIS_DISABLE_TRACING"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ANALYSIS_DISABLE_TRACING %q: %v", models.ErrConfig, v, err)
		}
		disableTracing = parsed
	}

	cfg := &Config{
		V2EXToken:       token,
		APIBase:         apiBase,
		GeminiAPIKey:    geminiKey,
		GeminiModel:     geminiModel,
		AnalysisTimeout: analysisTimeout,
		MaxChars:        maxChars,
		OutputDir:       outputDir,
		DisableTracing:  disableTracing,
	}
	if err := validator.New().ValidateStruct(*cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfig, err)
	}
	return cfg, nil
}
