// Package chunker splits documents into overlapping fixed-size windows.
package chunker

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
)

const (
	// DefaultChunkSize is the default number of characters per chunk
	DefaultChunkSize = 500
	// DefaultOverlap is the default number of characters shared by consecutive chunks
	DefaultOverlap = 100
	// PageSize is the number of characters counted as one page
	PageSize = 3000
)

// sectionKeywords is checked in order, first match wins
var sectionKeywords = []struct {
	keyword string
	section model.Section
}{
	{"skills", model.SectionSkills},
	{"experience", model.SectionExperience},
	{"education", model.SectionEducation},
	{"project", model.SectionProjects},
}

// Chunker splits document content into windows of chunkSize characters
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. The configuration is validated by Chunk.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured window size
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits doc into ordered chunks. Offsets and lengths count characters
// (code points), not bytes. The last window ends exactly at the end of the
// content, so only it can be shorter than chunkSize.
func (c *Chunker) Chunk(doc *model.Document) ([]*model.DocumentChunk, error) {
	if doc == nil {
		return nil, goerr.Wrap(model.ErrInvalidDocument, "document is nil")
	}
	if c.chunkSize <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidDocument, "chunk size must be positive",
			goerr.V("chunk_size", c.chunkSize))
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, goerr.Wrap(model.ErrInvalidDocument, "overlap must be in [0, chunk size)",
			goerr.V("chunk_size", c.chunkSize),
			goerr.V("overlap", c.overlap))
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, goerr.Wrap(model.ErrInvalidDocument, "document content is empty",
			goerr.V("document_id", doc.ID))
	}

	content := []rune(doc.Content)
	step := c.chunkSize - c.overlap
	chunks := make([]*model.DocumentChunk, 0, len(content)/step+1)

	for start := 0; ; start += step {
		end := min(start+c.chunkSize, len(content))
		text := string(content[start:end])

		chunks = append(chunks, &model.DocumentChunk{
			ID:         model.NewChunkID(doc.ID, start),
			DocumentID: doc.ID,
			Content:    text,
			Metadata: model.ChunkMetadata{
				Section: DetectSection(text),
				Page:    start/PageSize + 1,
				Offset:  start,
			},
		})

		if end == len(content) {
			break
		}
	}

	return chunks, nil
}

// DetectSection labels text by case-insensitive keyword match
func DetectSection(text string) model.Section {
	lower := strings.ToLower(text)
	for _, sk := range sectionKeywords {
		if strings.Contains(lower, sk.keyword) {
			return sk.section
		}
	}
	return model.SectionGeneral
}
