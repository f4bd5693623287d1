package interfaces

import (
	"context"

	"github.com/m-mizutani/resumerag/pkg/model"
)

// Synthesizer produces an answer grounded in retrieved chunks
type Synthesizer interface {
	// Generate answers query using chunks ordered by descending relevance.
	// history is the conversation so far, oldest first, excluding the current query.
	Generate(ctx context.Context, query string, chunks []*model.DocumentChunk, history []*model.Message) (*model.Synthesis, error)
}
