package models

import (
	"time"

	"github.com/google/uuid"
)

// MessagePriority is the category tag attached to a message.
type MessagePriority string

const (
	PriorityLow    MessagePriority = "low"
	PriorityMedium MessagePriority = "medium"
	PriorityHigh   MessagePriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p MessagePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Message is a single chat message. The author is referenced by id; Author is
// hydrated with the owning user's public fields for responses and broadcasts.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	Content   string          `json:"content"`
	Priority  MessagePriority `json:"priority"`
	CreatedAt time.Time       `json:"created_at"`
	AuthorID  uuid.UUID       `json:"-"`
	Author    *PublicUser     `json:"user,omitempty"`
}

// MessageFilter narrows a message listing. Zero values mean "no filter".
type MessageFilter struct {
	Search   string
	Priority MessagePriority
}

// UserStats summarizes a user's messaging activity.
type UserStats struct {
	UserID       uuid.UUID  `json:"user_id"`
	Username     string     `json:"username"`
	MessageCount int64      `json:"message_count"`
	FirstMessage *time.Time `json:"first_message,omitempty"`
	LastMessage  *time.Time `json:"last_message,omitempty"`
}
