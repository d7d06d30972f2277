package v2ex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/util"
	"github.com/threadlens/v2ex-analyst/internal/validator"
)

func newTestClient(base string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiBase:    base,
		token:      "test-token",
		limiter:    rate.NewLimiter(rate.Inf, 1),
		attempts:   maxAttempts,
		backoff:    util.BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2.0},
		validate:   validator.New(),
	}
}

const topicJSON = `{
	"success": true,
	"result": {
		"id": 12345,
		"title": "Example",
		"content": "Topic body",
		"replies": 2,
		"created": 1700000000,
		"member": {"id": 7, "username": "alice"},
		"node": {"id": 1, "name": "go", "title": "Go"}
	}
}`

func repliesJSON(ids []int64, perPage, pages int) string {
	var entries []string
	for i, id := range ids {
		entries = append(entries, fmt.Sprintf(
			`{"id": %d, "content": "reply %d", "created": 1700000%03d, "member": {"id": %d, "username": "user%d"}}`,
			id, i+1, i, 100+i, i+1))
	}
	return fmt.Sprintf(`{"success": true, "result": [%s], "pagination": {"per_page": %d, "total": %d, "pages": %d}}`,
		strings.Join(entries, ","), perPage, len(ids), pages)
}

func TestFetchTopic(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/topics/12345" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer credential, got %q", got)
		}
		fmt.Fprint(w, topicJSON)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	topic, err := c.FetchTopic(context.Background(), 12345)
	if err != nil {
		t.Fatalf("FetchTopic returned error: %v", err)
	}
	if topic.ID != 12345 || topic.Title != "Example" || topic.Author != "alice" {
		t.Errorf("Unexpected topic: %+v", topic)
	}
	if topic.ReplyCount != 2 {
		t.Errorf("Expected reply count 2, got %d", topic.ReplyCount)
	}
	if topic.Node != "Go" {
		t.Errorf("Expected node Go, got %s", topic.Node)
	}
	if requests.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", requests.Load())
	}
}

func TestFetchTopic_NotFound(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchTopic(context.Background(), 99999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("Fatal 404 should not be retried, got %d requests", requests.Load())
	}
}

func TestFetchTopic_AuthRejected(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchTopic(context.Background(), 12345)
	if !errors.Is(err, models.ErrAuth) {
		t.Fatalf("Expected ErrAuth, got %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("Fatal auth failure should not be retried, got %d requests", requests.Load())
	}
}

func TestFetchTopic_RetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, topicJSON)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	topic, err := c.FetchTopic(context.Background(), 12345)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if topic.Title != "Example" {
		t.Errorf("Unexpected topic title %q", topic.Title)
	}
	if requests.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", requests.Load())
	}
}

func TestFetchTopic_EnvelopeFailureIsFatal(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"success": false, "message": "token scope insufficient"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchTopic(context.Background(), 12345)
	if !errors.Is(err, models.ErrTransient) {
		t.Fatalf("Expected ErrTransient, got %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("API-level failure should not be retried, got %d requests", requests.Load())
	}
}

func TestFetchReplies_ExplicitPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("p") {
		case "1":
			fmt.Fprint(w, repliesJSON([]int64{101, 102}, 2, 2))
		case "2":
			fmt.Fprint(w, repliesJSON([]int64{103}, 2, 2))
		default:
			t.Errorf("Unexpected page %s", r.URL.Query().Get("p"))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 0)
	if err != nil {
		t.Fatalf("FetchReplies returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	if pages[0].Last {
		t.Error("Page 1 should not be marked last")
	}
	if !pages[1].Last {
		t.Error("Page 2 should be marked last")
	}
	// Positions continue across page boundaries.
	if got := pages[1].Replies[0].Position; got != 3 {
		t.Errorf("Expected position 3 for first reply of page 2, got %d", got)
	}
	if got := pages[0].Replies[1].Author; got != "user2" {
		t.Errorf("Expected author user2, got %s", got)
	}
}

func TestFetchReplies_ShortPageInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No pagination metadata; a page shorter than the default page
		// size must end the walk.
		fmt.Fprint(w, `{"success": true, "result": [{"id": 201, "content": "only", "member": {"id": 1, "username": "bob"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 0)
	if err != nil {
		t.Fatalf("FetchReplies returned error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(pages))
	}
	if !pages[0].Last {
		t.Error("Short page should be marked last")
	}
}

func TestFetchReplies_MaxPagesCeiling(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page := r.URL.Query().Get("p")
		fmt.Fprint(w, repliesJSON([]int64{300 + int64(page[0])}, 1, 5))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 2)
	if err != nil {
		t.Fatalf("FetchReplies returned error: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("Expected 2 pages under the cap, got %d", len(pages))
	}
	if requests.Load() != 2 {
		t.Errorf("Cap must be checked before fetching, got %d requests", requests.Load())
	}
}

func TestFetchReplies_RateLimitExhaustion(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 0)
	if !errors.Is(err, models.ErrTransient) {
		t.Fatalf("Expected ErrTransient after exhaustion, got %v", err)
	}
	if requests.Load() != maxAttempts {
		t.Errorf("Expected exactly %d attempts, got %d", maxAttempts, requests.Load())
	}
	if len(pages) != 0 {
		t.Errorf("Expected no pages, got %d", len(pages))
	}
}

func TestFetchReplies_PartialResultSurfacedOnLaterFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "1" {
			fmt.Fprint(w, repliesJSON([]int64{101, 102}, 2, 3))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 0)
	if err == nil {
		t.Fatal("Expected error from failing page 2")
	}
	if !errors.Is(err, models.ErrTransient) {
		t.Fatalf("Expected ErrTransient, got %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected the successfully fetched page to be surfaced, got %d pages", len(pages))
	}
	if pages[0].Number != 1 || len(pages[0].Replies) != 2 {
		t.Errorf("Unexpected partial page: %+v", pages[0])
	}
}

func TestFetchReplies_RenderedContentFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "result": [{"id": 401, "content_rendered": "<p>hello <strong>world</strong></p>", "member": {"id": 1, "username": "carol"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	pages, err := c.FetchReplies(context.Background(), 12345, 0)
	if err != nil {
		t.Fatalf("FetchReplies returned error: %v", err)
	}
	if got := pages[0].Replies[0].Content; got != "hello world" {
		t.Errorf("Expected stripped HTML body, got %q", got)
	}
}

func TestFetchReplies_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, repliesJSON([]int64{101}, 1, 5))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(srv.URL)
	_, err := c.FetchReplies(ctx, 12345, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
