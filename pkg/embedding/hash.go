// Package embedding provides Embedder implementations.
package embedding

import (
	"context"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/m-mizutani/resumerag/pkg/utils/tokenize"
)

// DefaultDimension is the vector length used unless configured otherwise
const DefaultDimension = 384

// Hash is a deterministic feature-hashing embedder. Each term is hashed into
// one of dimension buckets with a hash-derived sign, weighted by 1+log(tf),
// and the vector is L2-normalized. Texts without any term embed to the zero
// vector. It needs no model, so it is the offline default.
type Hash struct {
	dimension int
	seed      uint64
}

type HashOption func(*Hash)

// WithHashSeed changes the bucket assignment. Vectors from different seeds are not comparable.
func WithHashSeed(seed uint64) HashOption {
	return func(h *Hash) {
		h.seed = seed
	}
}

// NewHash creates a Hash embedder. Non-positive dimension falls back to DefaultDimension.
func NewHash(dimension int, opts ...HashOption) *Hash {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	h := &Hash{dimension: dimension}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hash) Name() string   { return "hash" }
func (h *Hash) Dimension() int { return h.dimension }

func (h *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	tf := make(map[string]int)
	for _, tok := range tokenize.Tokens(text) {
		tf[tok]++
	}

	acc := make([]float64, h.dimension)
	for term, count := range tf {
		sum := xxhash.Sum64String(strconv.FormatUint(h.seed, 16) + ":" + term)
		bucket := int(sum % uint64(h.dimension))
		weight := 1 + math.Log(float64(count))
		if (sum>>63)&1 == 1 {
			weight = -weight
		}
		acc[bucket] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.dimension)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}
