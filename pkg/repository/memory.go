// Package repository implements session and chunk persistence on Firestore,
// SQLite and in memory.
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/index"
	"github.com/m-mizutani/resumerag/pkg/model"
)

// Memory keeps sessions and chunks in process. Useful for tests and for the
// MCP server when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
	chunks   map[model.ChunkID]*model.DocumentChunk
	order    []model.ChunkID
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[model.SessionID]*model.Session),
		chunks:   make(map[model.ChunkID]*model.DocumentChunk),
	}
}

func (m *Memory) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	copied.Messages = slices.Clone(session.Messages)
	m.sessions[session.ID] = &copied
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "session not found", goerr.V("id", id))
	}
	copied := *s
	copied.Messages = slices.Clone(s.Messages)
	return &copied, nil
}

func (m *Memory) ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		sessions = append(sessions, &copied)
	}
	slices.SortFunc(sessions, func(a, b *model.Session) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	return page(sessions, offset, limit), nil
}

func (m *Memory) PutChunks(ctx context.Context, chunks []*model.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return goerr.Wrap(model.ErrInvalidArgument, "chunk has no embedding", goerr.V("chunk_id", c.ID))
		}
		if _, ok := m.chunks[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		copied := *c
		copied.Embedding = slices.Clone(c.Embedding)
		m.chunks[c.ID] = &copied
	}
	return nil
}

// SearchChunks builds a throwaway index over the stored chunks
func (m *Memory) SearchChunks(ctx context.Context, embedding []float32, limit int) ([]*model.DocumentChunk, error) {
	m.mu.RLock()
	idx := index.New()
	for _, id := range m.order {
		c := m.chunks[id]
		if err := idx.Add(c, c.Embedding); err != nil {
			m.mu.RUnlock()
			return nil, goerr.Wrap(err, "failed to index stored chunk")
		}
	}
	m.mu.RUnlock()
	idx.MarkReady()

	results, err := idx.Search(embedding, limit)
	if err != nil {
		return nil, err
	}
	chunks := make([]*model.DocumentChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
