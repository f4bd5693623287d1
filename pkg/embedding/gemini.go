package embedding

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/model"
)

// Gemini embeds text with the Gemini embedding model
type Gemini struct {
	client    adapter.Gemini
	dimension int
}

func NewGemini(client adapter.Gemini, dimension int) *Gemini {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Gemini{client: client, dimension: dimension}
}

func (g *Gemini) Name() string   { return "gemini" }
func (g *Gemini) Dimension() int { return g.dimension }

// Embed returns model.ErrEmbeddingUnavailable for any backend failure. The
// backend error is joined into the chain so adapter.IsPermanent can see it.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := g.client.Embedding(ctx, text, g.dimension)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(model.ErrEmbeddingUnavailable, err), "gemini embedding failed",
			goerr.V("dimension", g.dimension))
	}
	if len(vector) != g.dimension {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "unexpected embedding dimension",
			goerr.V("expected", g.dimension),
			goerr.V("actual", len(vector)))
	}
	return vector, nil
}
