// Package aggregator merges a topic and its reply pages into a single
// bounded, deduplicated, analysis-ready document.
package aggregator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/threadlens/v2ex-analyst/internal/config"
	"github.com/threadlens/v2ex-analyst/internal/models"
)

const blockSeparator = "\n\n"

// Aggregate flattens pages in fetch order, deduplicates replies by ID (first
// occurrence wins), and renders the thread as text within maxChars. The
// result is byte-identical for identical inputs.
func Aggregate(topic *models.Topic, pages []models.Page, maxChars int) (*models.AggregatedThread, error) {
	if maxChars < config.MinMaxChars {
		return nil, fmt.Errorf("%w: aggregation budget %d is below the minimum %d", models.ErrConfig, maxChars, config.MinMaxChars)
	}

	var b strings.Builder
	truncated := false

	header := renderTopic(topic)
	if utf8.RuneCountInString(header) > maxChars {
		header = truncateRunes(header, maxChars)
		truncated = true
	}
	b.WriteString(header)
	used := utf8.RuneCountInString(header)

	seen := make(map[int64]bool)
	var included []models.Reply
	for _, page := range pages {
		for _, reply := range page.Replies {
			if seen[reply.ID] {
				continue
			}
			seen[reply.ID] = true

			if truncated {
				continue
			}
			block := renderReply(reply)
			cost := utf8.RuneCountInString(blockSeparator) + utf8.RuneCountInString(block)
			if used+cost > maxChars {
				truncated = true
				continue
			}
			b.WriteString(blockSeparator)
			b.WriteString(block)
			used += cost
			included = append(included, reply)
		}
	}

	if truncated {
		slog.Info("Thread truncated to budget", "topic_id", topic.ID, "included_replies", len(included), "max_chars", maxChars)
	}

	return &models.AggregatedThread{
		Topic:     *topic,
		Replies:   included,
		Text:      b.String(),
		Truncated: truncated,
	}, nil
}

func renderTopic(t *models.Topic) string {
	lines := []string{
		"Topic:",
		"Title: " + t.Title,
		"Author: " + t.Author,
	}
	if t.Node != "" {
		lines = append(lines, "Node: "+t.Node)
	}
	if !t.Created.IsZero() {
		lines = append(lines, "Created: "+t.Created.UTC().Format(time.RFC3339))
	}
	lines = append(lines, "Content:", strings.TrimSpace(t.Content))
	return strings.Join(lines, "\n")
}

func renderReply(r models.Reply) string {
	lines := []string{
		fmt.Sprintf("[%d] Author: %s", r.Position, r.Author),
	}
	if !r.Created.IsZero() {
		lines = append(lines, "Created: "+r.Created.UTC().Format(time.RFC3339))
	}
	lines = append(lines, "Content:", strings.TrimSpace(r.Content))
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, max int) string {
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
