// Package index implements an in-memory cosine similarity vector index.
package index

import (
	"math"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
)

// Result is a search hit. Chunk is a copy with Metadata.Relevance set to Score
// clamped to [0,1]; Score itself is the raw cosine similarity in [-1,1].
type Result struct {
	Chunk *model.DocumentChunk
	Score float64
}

type entry struct {
	chunk  *model.DocumentChunk
	vector []float32 // L2-normalized, zero vector kept as is
}

// Index maps chunk IDs to (embedding, chunk). Search is gated behind MarkReady
// and may run concurrently with other searches; Add is rejected once ready.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []*entry
	positions map[model.ChunkID]int
	ready     bool
}

// New creates an empty index. The dimension is fixed by the first Add.
func New() *Index {
	return &Index{
		positions: make(map[model.ChunkID]int),
	}
}

// Add stores chunk with its embedding. Re-adding an existing chunk ID
// replaces the entry in place, keeping its original insertion position.
func (x *Index) Add(chunk *model.DocumentChunk, embedding []float32) error {
	if chunk == nil {
		return goerr.Wrap(model.ErrInvalidArgument, "chunk is nil")
	}
	if len(embedding) == 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "embedding is empty", goerr.V("chunk_id", chunk.ID))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.ready {
		return goerr.Wrap(model.ErrInvalidArgument, "index is sealed, build a new one", goerr.V("chunk_id", chunk.ID))
	}
	if x.dimension == 0 {
		x.dimension = len(embedding)
	}
	if len(embedding) != x.dimension {
		return goerr.Wrap(model.ErrInvalidArgument, "embedding dimension mismatch",
			goerr.V("chunk_id", chunk.ID),
			goerr.V("expected", x.dimension),
			goerr.V("actual", len(embedding)))
	}

	stored := *chunk
	stored.Embedding = slices.Clone(embedding)
	stored.Metadata.Relevance = nil

	e := &entry{chunk: &stored, vector: normalize(embedding)}
	if pos, ok := x.positions[chunk.ID]; ok {
		x.entries[pos] = e
		return nil
	}
	x.positions[chunk.ID] = len(x.entries)
	x.entries = append(x.entries, e)
	return nil
}

// MarkReady seals the index and enables Search
func (x *Index) MarkReady() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ready = true
}

// Ready reports whether Search is allowed
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

// Len returns the number of entries
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimension returns the embedding dimension, 0 while empty
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Chunks returns indexed chunks in insertion order
func (x *Index) Chunks() []*model.DocumentChunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	chunks := make([]*model.DocumentChunk, len(x.entries))
	for i, e := range x.entries {
		copied := *e.chunk
		chunks[i] = &copied
	}
	return chunks
}

// Search returns up to topK entries ordered by descending cosine similarity.
// Equal scores keep insertion order.
func (x *Index) Search(query []float32, topK int) ([]*Result, error) {
	if topK <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "topK must be positive", goerr.V("top_k", topK))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, goerr.Wrap(model.ErrIndexNotReady, "search before index is ready")
	}
	if len(x.entries) == 0 {
		return []*Result{}, nil
	}
	if len(query) != x.dimension {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query dimension mismatch",
			goerr.V("expected", x.dimension),
			goerr.V("actual", len(query)))
	}

	q := normalize(query)
	type scored struct {
		pos   int
		score float64
	}
	hits := make([]scored, len(x.entries))
	for i, e := range x.entries {
		hits[i] = scored{pos: i, score: dot(q, e.vector)}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	n := min(topK, len(hits))
	results := make([]*Result, 0, n)
	for _, h := range hits[:n] {
		results = append(results, &Result{
			// Relevance is bounded to [0,1]; anti-correlated hits read as irrelevant
			Chunk: x.entries[h.pos].chunk.WithRelevance(max(0, h.score)),
			Score: h.score,
		})
	}
	return results, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	// float32 rounding can leave |cos| slightly above 1
	return max(-1, min(1, sum))
}
