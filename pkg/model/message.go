package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

// NewMessageID generates a new time-ordered MessageID (UUIDv7)
func NewMessageID() MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 fails only when the random source does
		return MessageID(uuid.New().String())
	}
	return MessageID(id.String())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation entry. It is immutable once appended to a history.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	Sources             []*DocumentChunk `json:"sources,omitempty"`
	Confidence          *float64         `json:"confidence,omitempty"`
	FollowUpSuggestions []string         `json:"follow_up_suggestions,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current time
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Synthesis is the output of a response synthesizer
type Synthesis struct {
	Content             string   `json:"answer"`
	Confidence          float64  `json:"confidence"`
	FollowUpSuggestions []string `json:"follow_up_suggestions"`
}

// MaxFollowUpSuggestions bounds Synthesis.FollowUpSuggestions
const MaxFollowUpSuggestions = 5
