// Package conversation manages a single chat session over a shared retriever.
package conversation

import (
	"sync"
	"time"

	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/corpus"
	"github.com/m-mizutani/resumerag/pkg/interfaces"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/synth"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
)

const (
	// DefaultTopK is the number of chunks retrieved per query
	DefaultTopK = 5

	ApologyText = "I apologize, but I encountered an error. Please try again."
	RefusalText = "I can only help with questions about Aswin's background, experience and projects."
)

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Session is the state machine Idle -> AwaitingResponse -> Idle over an
// append-only message history. A session serves one query at a time.
type Session struct {
	id        model.SessionID
	createdAt time.Time

	retriever   interfaces.Retriever
	synthesizer interfaces.Synthesizer
	repo        interfaces.SessionRepository
	guard       interfaces.Guard
	policy      retry.Policy
	topK        int

	greeting          string
	greetingFollowUps []string

	mu       sync.Mutex
	state    State
	messages []*model.Message
	revision uint64

	// persistMu orders repository writes; persisted is the last revision written
	persistMu sync.Mutex
	persisted uint64
}

// Option is a functional option for Session
type Option func(*Session)

// WithSynthesizer replaces the default extractive synthesizer
func WithSynthesizer(s interfaces.Synthesizer) Option {
	return func(c *Session) {
		c.synthesizer = s
	}
}

func WithTopK(k int) Option {
	return func(c *Session) {
		c.topK = k
	}
}

// WithRetry sets the retry policy for synthesis calls
func WithRetry(p retry.Policy) Option {
	return func(c *Session) {
		c.policy = p
	}
}

// WithRepository persists the history after every change
func WithRepository(repo interfaces.SessionRepository) Option {
	return func(c *Session) {
		c.repo = repo
	}
}

// WithGuard checks every query before retrieval
func WithGuard(g interfaces.Guard) Option {
	return func(c *Session) {
		c.guard = g
	}
}

// WithGreeting replaces the first assistant message and its follow-ups
func WithGreeting(text string, followUps ...string) Option {
	return func(c *Session) {
		c.greeting = text
		c.greetingFollowUps = followUps
	}
}

func WithSessionID(id model.SessionID) Option {
	return func(c *Session) {
		c.id = id
	}
}

// WithHistory resumes a persisted session. A session without messages
// starts from the greeting.
func WithHistory(session *model.Session) Option {
	return func(c *Session) {
		if session == nil {
			return
		}
		c.id = session.ID
		c.createdAt = session.CreatedAt
		c.messages = append([]*model.Message(nil), session.Messages...)
	}
}

// New creates a session whose history holds only the greeting
func New(retriever interfaces.Retriever, opts ...Option) *Session {
	policy := retry.DefaultPolicy()
	policy.Permanent = adapter.IsPermanent

	s := &Session{
		id:                model.NewSessionID(),
		createdAt:         time.Now(),
		retriever:         retriever,
		synthesizer:       synth.NewExtractive(synth.WithFollowUps(corpus.FollowUps)),
		policy:            policy,
		topK:              DefaultTopK,
		greeting:          corpus.Greeting,
		greetingFollowUps: corpus.GreetingFollowUps,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.topK <= 0 {
		s.topK = DefaultTopK
	}
	if len(s.messages) == 0 {
		s.messages = []*model.Message{s.greetingMessage()}
	}

	return s
}

func (s *Session) greetingMessage() *model.Message {
	msg := model.NewMessage(model.RoleAssistant, s.greeting)
	msg.FollowUpSuggestions = append([]string(nil), s.greetingFollowUps...)
	return msg
}

func (s *Session) ID() model.SessionID { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
