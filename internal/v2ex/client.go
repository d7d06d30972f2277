// Package v2ex is the paginated retrieval client for the V2EX API v2.
package v2ex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/threadlens/v2ex-analyst/internal/config"
	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/util"
	"github.com/threadlens/v2ex-analyst/internal/validator"
)

// defaultPageSize is the reply page size the API serves when the pagination
// envelope is absent; short pages against it signal the last page.
const defaultPageSize = 20

// maxAttempts is the per-request retry budget for transient failures.
const maxAttempts = 3

// Fetcher retrieves a topic and its reply pages.
type Fetcher interface {
	FetchTopic(ctx context.Context, topicID int64) (*models.Topic, error)
	FetchReplies(ctx context.Context, topicID int64, maxPages int) ([]models.Page, error)
}

type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	limiter    *rate.Limiter
	attempts   int
	backoff    util.BackoffConfig
	validate   *validator.Validator
}

func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		token:      cfg.V2EXToken,
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		attempts:   maxAttempts,
		backoff:    util.DefaultBackoff,
		validate:   validator.New(),
	}
}

// FetchTopic retrieves one topic's metadata.
func (c *Client) FetchTopic(ctx context.Context, topicID int64) (*models.Topic, error) {
	slog.Info("Fetching topic", "topic_id", topicID)
	url := fmt.Sprintf("%s/topics/%d", c.apiBase, topicID)

	var topic *models.Topic
	err := util.RetryWithBackoff(ctx, c.attempts, c.backoff, func(attempt int) error {
		env, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		var wt wireTopic
		if err := json.Unmarshal(env.Result, &wt); err != nil {
			return util.Permanent(fmt.Errorf("%w: decoding topic: %v", models.ErrTransient, err))
		}
		t := wt.toModel()
		if err := c.validate.ValidateStruct(*t); err != nil {
			return util.Permanent(fmt.Errorf("%w: topic %d failed validation: %v", models.ErrTransient, topicID, err))
		}
		topic = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch topic %d: %w", topicID, err)
	}
	return topic, nil
}

// FetchReplies retrieves reply pages in ascending page order, stopping at
// the API's end-of-pages signal or the maxPages ceiling (<= 0 means
// unbounded). On failure the pages fetched so far are returned alongside the
// error so the caller can decide on a partial analysis.
func (c *Client) FetchReplies(ctx context.Context, topicID int64, maxPages int) ([]models.Page, error) {
	var pages []models.Page
	for pageNum := 1; ; pageNum++ {
		// Hard ceiling, checked before each fetch.
		if maxPages > 0 && pageNum > maxPages {
			slog.Info("Reached max pages cap", "topic_id", topicID, "max_pages", maxPages)
			return pages, nil
		}

		page, err := c.fetchPage(ctx, topicID, pageNum)
		if err != nil {
			return pages, fmt.Errorf("fetch replies for topic %d page %d: %w", topicID, pageNum, err)
		}
		if len(page.Replies) == 0 {
			return pages, nil
		}
		pages = append(pages, page)
		if page.Last {
			return pages, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, topicID int64, pageNum int) (models.Page, error) {
	slog.Info("Fetching replies", "topic_id", topicID, "page", pageNum)
	url := fmt.Sprintf("%s/topics/%d/replies?p=%d", c.apiBase, topicID, pageNum)

	var page models.Page
	err := util.RetryWithBackoff(ctx, c.attempts, c.backoff, func(attempt int) error {
		env, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		var raw []wireReply
		if err := json.Unmarshal(env.Result, &raw); err != nil {
			return util.Permanent(fmt.Errorf("%w: decoding replies: %v", models.ErrTransient, err))
		}

		perPage := defaultPageSize
		if env.Pagination != nil && env.Pagination.PerPage > 0 {
			perPage = env.Pagination.PerPage
		}
		more := signalFor(env.Pagination, perPage).HasMore(len(raw), pageNum)
		page = toPage(topicID, pageNum, perPage, raw, !more)
		return nil
	})
	return page, err
}

// get performs one authenticated request, classifies failures, and decodes
// the response envelope. Rate-limit responses honor the reset header before
// the retry loop's own backoff kicks in.
func (c *Client) get(ctx context.Context, url string) (*apiEnvelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, util.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response: %v", models.ErrTransient, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.waitForReset(ctx, resp.Header.Get("X-Rate-Limit-Reset"))
		}
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding response envelope: %v", models.ErrTransient, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "API reported failure"
		}
		return nil, util.Permanent(fmt.Errorf("%w: %s", models.ErrTransient, msg))
	}
	return &env, nil
}

// waitForReset sleeps until the server-reported rate-limit reset, capped at
// the backoff ceiling so a bogus header cannot stall the pipeline.
func (c *Client) waitForReset(ctx context.Context, header string) {
	reset := parseRateLimitReset(header)
	if reset.IsZero() {
		return
	}
	wait := time.Until(reset)
	if wait <= 0 {
		return
	}
	if wait > c.backoff.Max {
		wait = c.backoff.Max
	}
	slog.Warn("Rate limited, honoring reset header", "wait", wait)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
