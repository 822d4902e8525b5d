package model

import (
	"strings"
	"time"
)

// DefaultTag is the team channel used when a query or message carries no tag.
const DefaultTag = "General"

// PlaceholderText is seeded into empty user-view buckets.
const PlaceholderText = "Team is on the way."

type Role string

const (
	RoleUser   Role = "user"
	RoleStaff  Role = "staff"
	RoleSystem Role = "system"
)

// ChatMessage is one entry of a query's chat history or a live chat event.
type ChatMessage struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Role   Role      `json:"role"`
	Tag    string    `json:"tag,omitempty"`
	Time   time.Time `json:"time"`
}

// Bucket returns the tag this message is filed under.
func (m *ChatMessage) Bucket() string {
	if strings.TrimSpace(m.Tag) == "" {
		return DefaultTag
	}
	return m.Tag
}

// SameAs reports an exact sender, text and timestamp match.
func (m *ChatMessage) SameAs(other *ChatMessage) bool {
	return m.Sender == other.Sender && m.Text == other.Text && m.Time.Equal(other.Time)
}

// NewPlaceholder builds the system message shown while no team has replied.
func NewPlaceholder(tag string, at time.Time) *ChatMessage {
	return &ChatMessage{
		Sender: string(RoleSystem),
		Text:   PlaceholderText,
		Role:   RoleSystem,
		Tag:    tag,
		Time:   at,
	}
}
