package embedding

import (
	"context"
	"math/rand"
	"sync"
)

// Random returns random unit vectors regardless of the input text. Search over
// these vectors is meaningless and not reproducible across seeds. It exists
// for load and lifecycle tests that must not depend on ranking.
type Random struct {
	mu        sync.Mutex
	rng       *rand.Rand
	dimension int
}

// NewRandom creates a Random embedder. The same seed yields the same sequence
// of vectors, not the same vector per text.
func NewRandom(dimension int, seed int64) *Random {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Random{
		rng:       rand.New(rand.NewSource(seed)),
		dimension: dimension,
	}
}

func (r *Random) Name() string   { return "random" }
func (r *Random) Dimension() int { return r.dimension }

func (r *Random) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float32, r.dimension)
	for i := range vec {
		vec[i] = float32(r.rng.NormFloat64())
	}
	return vec, nil
}
