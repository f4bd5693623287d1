package model

import "fmt"

type ChunkID string

// NewChunkID derives a chunk ID from the parent document and the character offset of the window
func NewChunkID(docID DocumentID, offset int) ChunkID {
	return ChunkID(fmt.Sprintf("%s-chunk-%d", docID, offset))
}

type Section string

const (
	SectionSkills     Section = "Skills"
	SectionExperience Section = "Experience"
	SectionEducation  Section = "Education"
	SectionProjects   Section = "Projects"
	SectionGeneral    Section = "General"
)

// Sections lists all sections in detection precedence order, General last
var Sections = []Section{
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionProjects,
	SectionGeneral,
}

type ChunkMetadata struct {
	Section Section `json:"section"`
	Page    int     `json:"page"`
	// Offset is the character offset of the chunk in its document
	Offset int `json:"offset"`

	// Relevance is set only on chunks returned from a search
	Relevance *float64 `json:"relevance,omitempty"`
}

// DocumentChunk is a bounded slice of a document and the unit of indexing and retrieval
type DocumentChunk struct {
	ID         ChunkID       `json:"id"`
	DocumentID DocumentID    `json:"document_id"`
	Content    string        `json:"content"`
	Embedding  []float32     `json:"-" firestore:"-"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// WithRelevance returns a copy of the chunk carrying the given relevance score.
// The embedding is shared with the original and must not be modified.
func (c *DocumentChunk) WithRelevance(score float64) *DocumentChunk {
	copied := *c
	copied.Metadata.Relevance = &score
	return &copied
}
