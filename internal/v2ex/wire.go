package v2ex

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/threadlens/v2ex-analyst/internal/models"
	"github.com/threadlens/v2ex-analyst/internal/util"
)

// Wire types for the V2EX API v2 response envelope. Unknown fields are
// ignored on decode.

type apiEnvelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Result     json.RawMessage `json:"result"`
	Pagination *wirePagination `json:"pagination"`
}

type wirePagination struct {
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type wireMember struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type wireNode struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

type wireTopic struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Content         string      `json:"content"`
	ContentRendered string      `json:"content_rendered"`
	Replies         int         `json:"replies"`
	Created         int64       `json:"created"`
	CreatedAt       int64       `json:"created_at"`
	Member          *wireMember `json:"member"`
	Node            *wireNode   `json:"node"`
}

type wireReply struct {
	ID              int64       `json:"id"`
	Content         string      `json:"content"`
	ContentRendered string      `json:"content_rendered"`
	Created         int64       `json:"created"`
	CreatedAt       int64       `json:"created_at"`
	Member          *wireMember `json:"member"`
}

func (m *wireMember) handle() string {
	if m == nil {
		return ""
	}
	if m.Username != "" {
		return m.Username
	}
	if m.Name != "" {
		return m.Name
	}
	return strconv.FormatInt(m.ID, 10)
}

func (n *wireNode) label() string {
	if n == nil {
		return ""
	}
	if n.Title != "" {
		return n.Title
	}
	return n.Name
}

// textOf prefers the plain body and falls back to the rendered one with the
// markup stripped; some responses carry only content_rendered.
func textOf(content, rendered string) string {
	if content != "" {
		return content
	}
	if rendered == "" {
		return ""
	}
	return util.HTMLToText(rendered)
}

func unixTime(primary, fallback int64) time.Time {
	if primary != 0 {
		return time.Unix(primary, 0).UTC()
	}
	if fallback != 0 {
		return time.Unix(fallback, 0).UTC()
	}
	return time.Time{}
}

func (t *wireTopic) toModel() *models.Topic {
	return &models.Topic{
		ID:         t.ID,
		Title:      t.Title,
		Author:     t.Member.handle(),
		Node:       t.Node.label(),
		Content:    textOf(t.Content, t.ContentRendered),
		ReplyCount: t.Replies,
		Created:    unixTime(t.Created, t.CreatedAt),
	}
}

// toPage converts one page of wire replies, assigning 1-based position
// indexes from the page offset so positions stay stable across refetches.
func toPage(topicID int64, pageNum, perPage int, raw []wireReply, last bool) models.Page {
	replies := make([]models.Reply, 0, len(raw))
	for i, r := range raw {
		replies = append(replies, models.Reply{
			ID:       r.ID,
			TopicID:  topicID,
			Author:   r.Member.handle(),
			Content:  textOf(r.Content, r.ContentRendered),
			Position: (pageNum-1)*perPage + i + 1,
			Created:  unixTime(r.Created, r.CreatedAt),
		})
	}
	return models.Page{Number: pageNum, Replies: replies, Last: last}
}
