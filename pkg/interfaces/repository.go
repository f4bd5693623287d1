package interfaces

import (
	"context"

	"github.com/m-mizutani/resumerag/pkg/model"
)

// SessionRepository persists conversation histories keyed by session ID
type SessionRepository interface {
	// PutSession saves or overwrites a session
	PutSession(ctx context.Context, session *model.Session) error

	// GetSession retrieves a session by ID. Returns model.ErrSessionNotFound if missing.
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)

	// ListSessions retrieves sessions ordered by UpdatedAt, newest first
	ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error)
}

// ChunkRepository mirrors indexed chunks with their embeddings to external storage
type ChunkRepository interface {
	// PutChunks saves chunks including embeddings
	PutChunks(ctx context.Context, chunks []*model.DocumentChunk) error

	// SearchChunks returns the nearest chunks by cosine distance, Relevance set to similarity
	SearchChunks(ctx context.Context, embedding []float32, limit int) ([]*model.DocumentChunk, error)
}
