package retrieval

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
)

// Retrieve embeds query and returns up to topK chunks ordered by descending
// relevance, each with Metadata.Relevance set.
func (uc *UseCase) Retrieve(ctx context.Context, query string, topK int) ([]*model.DocumentChunk, error) {
	idx := uc.current()
	if !idx.Ready() {
		return nil, goerr.Wrap(model.ErrIndexNotReady, "retrieve before initialize")
	}

	vec, err := uc.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := idx.Search(vec, topK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search index", goerr.V("top_k", topK))
	}

	chunks := make([]*model.DocumentChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	logging.From(ctx).Debug("chunks retrieved",
		"query", query,
		"top_k", topK,
		"hits", len(chunks))

	return chunks, nil
}

func (uc *UseCase) embed(ctx context.Context, text string) ([]float32, error) {
	return retry.Do(ctx, uc.policy, model.ErrEmbeddingUnavailable, func(ctx context.Context) ([]float32, error) {
		return uc.embedder.Embed(ctx, text)
	})
}
