package retrieval

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/docstore"
	"github.com/m-mizutani/resumerag/pkg/index"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
)

// Initialize stores, chunks and embeds docs into a fresh index, marks it
// ready and swaps it in. Failures of individual documents or chunks are
// joined into IndexReport.Err and the rest is still indexed. The returned
// error is non-nil only when ctx is cancelled, in which case the previous
// index stays in place.
func (uc *UseCase) Initialize(ctx context.Context, docs []*model.Document) (*model.IndexReport, error) {
	logger := logging.From(ctx)

	store := docstore.New()
	idx := index.New()
	report := &model.IndexReport{}
	var errs []error

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "initialize aborted")
		}

		if err := doc.Validate(); err != nil {
			report.Failed++
			errs = append(errs, err)
			logger.Warn("document rejected", "error", err)
			continue
		}

		chunks, err := uc.chunker.Chunk(doc)
		if err != nil {
			report.Failed++
			errs = append(errs, goerr.Wrap(err, "failed to chunk document", goerr.V("id", doc.ID)))
			continue
		}

		if err := store.Put(doc); err != nil {
			report.Failed++
			errs = append(errs, err)
			logger.Warn("document rejected", "error", err)
			continue
		}
		report.Documents++

		for _, chunk := range chunks {
			vec, err := retry.Do(ctx, uc.policy, model.ErrEmbeddingUnavailable, func(ctx context.Context) ([]float32, error) {
				return uc.embedder.Embed(ctx, chunk.Content)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, goerr.Wrap(err, "initialize aborted")
				}
				report.Failed++
				errs = append(errs, goerr.Wrap(err, "failed to embed chunk", goerr.V("chunk_id", chunk.ID)))
				logger.Warn("chunk skipped", "chunk_id", chunk.ID, "error", err)
				continue
			}

			if err := idx.Add(chunk, vec); err != nil {
				report.Failed++
				errs = append(errs, goerr.Wrap(err, "failed to index chunk", goerr.V("chunk_id", chunk.ID)))
				continue
			}
			report.Chunks++
		}
	}

	idx.MarkReady()
	report.Err = errors.Join(errs...)

	uc.mu.Lock()
	uc.store = store
	uc.index = idx
	uc.mu.Unlock()

	attrs := []any{
		"documents", report.Documents,
		"chunks", report.Chunks,
		"failed", report.Failed,
		"embedder", uc.embedder.Name(),
	}
	if report.Err != nil {
		logger.Warn("index built partially", append(attrs, "error", report.Err)...)
	} else {
		logger.Info("index built", attrs...)
	}

	return report, nil
}
