package retrieval

import (
	"github.com/m-mizutani/resumerag/pkg/model"
)

// Stats describes the current index
type Stats struct {
	Documents int
	Chunks    int
	Dimension int
	Embedder  string
	Ready     bool
	Sections  map[model.Section]int
}

// Stats returns counts of the current document store and index
func (uc *UseCase) Stats() *Stats {
	uc.mu.RLock()
	store, idx := uc.store, uc.index
	uc.mu.RUnlock()

	stats := &Stats{
		Documents: store.Len(),
		Chunks:    idx.Len(),
		Dimension: idx.Dimension(),
		Embedder:  uc.embedder.Name(),
		Ready:     idx.Ready(),
		Sections:  make(map[model.Section]int),
	}
	for _, c := range idx.Chunks() {
		stats.Sections[c.Metadata.Section]++
	}
	return stats
}

// Documents returns the stored documents in insertion order
func (uc *UseCase) Documents() []*model.Document {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.store.List()
}

// Chunks returns the indexed chunks in insertion order
func (uc *UseCase) Chunks() []*model.DocumentChunk {
	return uc.current().Chunks()
}
