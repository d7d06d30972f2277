package v2ex

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/util"
)

// classifyStatus maps a non-200 HTTP status to the pipeline error taxonomy.
// Fatal statuses come back wrapped as permanent so the retry loop stops.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		return util.Permanent(fmt.Errorf("%w: HTTP 404", models.ErrNotFound))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return util.Permanent(fmt.Errorf("%w: HTTP %d", models.ErrAuth, status))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429 rate limited", models.ErrTransient)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", models.ErrTransient, status, truncateBytes(body, 200))
	}
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Returns the zero time if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
