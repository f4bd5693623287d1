package interfaces

import (
	"context"

	"github.com/m-mizutani/resumerag/pkg/model"
)

// Retriever serves top-K chunk lookups over an initialized index
type Retriever interface {
	// Ready reports whether Retrieve can be served
	Ready() bool

	// Retrieve returns up to topK chunks ordered by descending relevance
	Retrieve(ctx context.Context, query string, topK int) ([]*model.DocumentChunk, error)
}

// Guard decides whether a query may be answered at all
type Guard interface {
	// Check returns the reasons to refuse query. An empty result allows it.
	Check(ctx context.Context, query string) ([]string, error)
}
