package model

import (
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

// CategoryOptions are the categories a user can pick when submitting a query.
var CategoryOptions = []string{
	"Technical Issue",
	"Account Problem",
	"General Question",
	"Feature Request",
	"UI/UX Feedback",
	"Payment Issue",
}

// MaxQueryMessageLength bounds the free-text body of a submitted query.
const MaxQueryMessageLength = 500

type Query struct {
	ID          string         `json:"_id"`
	Submitter   string         `json:"userName,omitempty"`
	Message     string         `json:"message"`
	Tags        []string       `json:"tags"`
	Status      Status         `json:"status,omitempty"`
	Priority    Priority       `json:"priority,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Messages    []*ChatMessage `json:"messages,omitempty"`
}

// Normalize fills the defaults the backend may omit.
func (q *Query) Normalize() {
	if q.Status == "" {
		q.Status = StatusPending
	}
	if q.Priority == "" {
		q.Priority = PriorityNormal
	}
}

// TagList returns the query's tags in order without repeats. Blank tags
// become the default tag, which is also the only tag of an untagged query.
func (q *Query) TagList() []string {
	tags := make([]string, 0, len(q.Tags))
	for _, tag := range q.Tags {
		if strings.TrimSpace(tag) == "" {
			tag = DefaultTag
		}
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return []string{DefaultTag}
	}
	return tags
}

// FirstTag is the tag a chat panel opens on.
func (q *Query) FirstTag() string {
	return q.TagList()[0]
}

func (q *Query) HasTag(tag string) bool {
	return slices.Contains(q.TagList(), tag)
}

type QueryList struct {
	Queries []Query `json:"queries"`
}

type AddQueryRequest struct {
	Categories []string `json:"categories"`
	Message    string   `json:"message"`
}
