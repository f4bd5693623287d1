// Package retrieval builds the vector index over a document set and serves
// top-K chunk lookups for conversations.
package retrieval

import (
	"sync"

	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/chunker"
	"github.com/m-mizutani/resumerag/pkg/docstore"
	"github.com/m-mizutani/resumerag/pkg/index"
	"github.com/m-mizutani/resumerag/pkg/interfaces"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
)

// UseCase owns the document store and the index built from it. It is shared
// by reference among sessions; Initialize swaps both atomically.
type UseCase struct {
	embedder interfaces.Embedder
	chunker  *chunker.Chunker
	policy   retry.Policy
	mirror   interfaces.ChunkRepository

	mu    sync.RWMutex
	store *docstore.Store
	index *index.Index
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithChunker replaces the default 500/100 chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(uc *UseCase) {
		uc.chunker = c
	}
}

// WithRetry sets the retry policy for embedding calls
func WithRetry(p retry.Policy) Option {
	return func(uc *UseCase) {
		uc.policy = p
	}
}

// WithChunkRepository enables Sync and SearchMirror
func WithChunkRepository(repo interfaces.ChunkRepository) Option {
	return func(uc *UseCase) {
		uc.mirror = repo
	}
}

// New creates a retrieval UseCase. Nothing is searchable until Initialize.
func New(embedder interfaces.Embedder, opts ...Option) *UseCase {
	policy := retry.DefaultPolicy()
	policy.Permanent = adapter.IsPermanent

	uc := &UseCase{
		embedder: embedder,
		chunker:  chunker.New(),
		policy:   policy,
		store:    docstore.New(),
		index:    index.New(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Ready reports whether Retrieve can be served
func (uc *UseCase) Ready() bool {
	return uc.current().Ready()
}

func (uc *UseCase) current() *index.Index {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.index
}
