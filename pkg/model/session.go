package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Session is the persisted form of a conversation history
type Session struct {
	ID        SessionID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []*Message
}
