package interfaces

import "context"

// Embedder converts text into a fixed-length vector
type Embedder interface {
	// Embed returns the vector for text. Length is always Dimension().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector length, fixed for the lifetime of the embedder
	Dimension() int

	// Name identifies the embedder in logs and index metadata
	Name() string
}
