package models

import (
	"time"
)

// Topic is the root forum thread being analyzed. Immutable once fetched.
type Topic struct {
	ID         int64     `validate:"required,gt=0"`
	Title      string    `validate:"required"`
	Author     string    `validate:"required"`
	Node       string    // forum section the topic was posted in, if reported
	Content    string    // plain-text body
	ReplyCount int       `validate:"gte=0"` // as reported by the API
	Created    time.Time
}

// Reply is one message within a topic's discussion. Immutable once fetched.
type Reply struct {
	ID       int64     `validate:"required,gt=0"`
	TopicID  int64     `validate:"required,gt=0"`
	Author   string
	Content  string
	Position int       `validate:"gte=1"` // 1-based, stable API ordering
	Created  time.Time
}

// Page is one batch of replies returned by a single paginated API call.
type Page struct {
	Number  int // 1-based page number it was fetched from
	Replies []Reply
	Last    bool // short page or explicit end marker
}

// AggregatedThread is the deduplicated, size-bounded, ordered merge of a
// topic and its replies, rendered as analysis-ready text.
type AggregatedThread struct {
	Topic     Topic
	Replies   []Reply // deduplicated by ID, non-decreasing position order
	Text      string  // deterministic linearized form handed downstream
	Truncated bool    // set when the character budget cut replies
}

// AnalysisReport is the external analysis capability's output for one topic.
type AnalysisReport struct {
	TopicID     int64
	GeneratedAt time.Time
	Body        string // non-empty on success
}
