package conversation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
)

const titleLength = 60

// History returns a copy of all messages in chronological order
func (s *Session) History() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = copyMessage(m)
	}
	return out
}

// Export renders the history as "ROLE: content" entries separated by a blank line
func (s *Session) Export() string {
	return Format(s.History())
}

// Format renders messages the way Export does
func Format(messages []*model.Message) string {
	entries := make([]string, len(messages))
	for i, m := range messages {
		entries[i] = strings.ToUpper(string(m.Role)) + ": " + m.Content
	}
	return strings.Join(entries, "\n\n")
}

// ExportFilename names a transcript exported at t
func ExportFilename(t time.Time) string {
	return "aswin-chat-" + t.UTC().Format("2006-01-02T15:04:05.000Z") + ".txt"
}

// Reset clears the history back to the greeting. Not allowed while a query
// is being answered.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return goerr.Wrap(model.ErrNotIdle, "cannot reset while awaiting a response", goerr.V("session_id", s.id))
	}
	s.messages = []*model.Message{s.greetingMessage()}
	snapshot, revision := s.snapshot()
	s.mu.Unlock()

	s.persist(ctx, snapshot, revision)
	return nil
}

// snapshot must be called with mu held. Each snapshot gets a new revision.
func (s *Session) snapshot() (*model.Session, uint64) {
	messages := make([]*model.Message, len(s.messages))
	copy(messages, s.messages)
	s.revision++

	return &model.Session{
		ID:        s.id,
		Title:     title(messages),
		CreatedAt: s.createdAt,
		UpdatedAt: time.Now(),
		Messages:  messages,
	}, s.revision
}

// persist writes session unless a newer revision is already stored. Failures
// are logged; the conversation itself keeps working.
func (s *Session) persist(ctx context.Context, session *model.Session, revision uint64) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	logger := logging.From(ctx)
	if revision <= s.persisted {
		logger.Debug("skip stale session snapshot", "session_id", session.ID, "revision", revision)
		return
	}
	if err := s.repo.PutSession(ctx, session); err != nil {
		logger.Warn("failed to persist session", "session_id", session.ID, "error", err)
		return
	}
	s.persisted = revision
	logger.Debug("session persisted", "session_id", session.ID, "messages", len(session.Messages))
}

func title(messages []*model.Message) string {
	for _, m := range messages {
		if m.Role != model.RoleUser {
			continue
		}
		if utf8.RuneCountInString(m.Content) <= titleLength {
			return m.Content
		}
		return string([]rune(m.Content)[:titleLength]) + "..."
	}
	return ""
}

func copyMessage(m *model.Message) *model.Message {
	copied := *m
	if m.Sources != nil {
		copied.Sources = make([]*model.DocumentChunk, len(m.Sources))
		for i, src := range m.Sources {
			copied.Sources[i] = copyChunk(src)
		}
	}
	copied.FollowUpSuggestions = append([]string(nil), m.FollowUpSuggestions...)
	if m.Confidence != nil {
		c := *m.Confidence
		copied.Confidence = &c
	}
	return &copied
}

func copyChunk(c *model.DocumentChunk) *model.DocumentChunk {
	copied := *c
	copied.Embedding = append([]float32(nil), c.Embedding...)
	if c.Metadata.Relevance != nil {
		r := *c.Metadata.Relevance
		copied.Metadata.Relevance = &r
	}
	return &copied
}
