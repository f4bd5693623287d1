package chunker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/chunker"
	"github.com/m-mizutani/resumerag/pkg/model"
)

func newDoc(content string) *model.Document {
	return &model.Document{
		ID:      "doc-1",
		Name:    "test",
		Type:    model.DocumentTypeOther,
		Content: content,
	}
}

func TestChunkCoverageAndOverlap(t *testing.T) {
	testCases := []struct {
		name      string
		length    int
		chunkSize int
		overlap   int
		expected  int
	}{
		{"shorter than one chunk", 120, 500, 100, 1},
		{"exactly one chunk", 500, 500, 100, 1},
		{"two chunks", 600, 500, 100, 2},
		{"exact multiple of step", 900, 500, 100, 2},
		{"many chunks", 2345, 500, 100, 6},
		{"no overlap", 1000, 250, 0, 4},
		{"large overlap", 50, 10, 9, 41},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			for i := 0; i < tc.length; i++ {
				sb.WriteByte(byte('a' + i%26))
			}
			content := sb.String()

			c := chunker.New(chunker.WithChunkSize(tc.chunkSize), chunker.WithOverlap(tc.overlap))
			chunks, err := c.Chunk(newDoc(content))
			gt.NoError(t, err)
			gt.A(t, chunks).Length(tc.expected)

			// Reassemble: first chunk plus each following chunk minus the overlap
			rebuilt := chunks[0].Content
			for i := 1; i < len(chunks); i++ {
				prev := chunks[i-1].Content
				cur := chunks[i].Content
				gt.True(t, len(cur) > tc.overlap)
				gt.Equal(t, cur[:tc.overlap], prev[len(prev)-tc.overlap:])
				rebuilt += cur[tc.overlap:]
			}
			gt.Equal(t, rebuilt, content)

			for i, chunk := range chunks {
				gt.True(t, len(chunk.Content) <= tc.chunkSize)
				if i < len(chunks)-1 {
					gt.Equal(t, len(chunk.Content), tc.chunkSize)
				}
				gt.Equal(t, chunk.DocumentID, model.DocumentID("doc-1"))
			}
		})
	}
}

func TestChunkIDsAndPages(t *testing.T) {
	content := strings.Repeat("x", 7000)
	chunks, err := chunker.New().Chunk(newDoc(content))
	gt.NoError(t, err)

	gt.Equal(t, chunks[0].ID, model.ChunkID("doc-1-chunk-0"))
	gt.Equal(t, chunks[1].ID, model.ChunkID("doc-1-chunk-400"))
	gt.Equal(t, chunks[0].Metadata.Page, 1)
	gt.Equal(t, chunks[1].Metadata.Offset, 400)

	for _, chunk := range chunks {
		switch chunk.ID {
		case "doc-1-chunk-2800":
			gt.Equal(t, chunk.Metadata.Page, 1)
		case "doc-1-chunk-3200":
			gt.Equal(t, chunk.Metadata.Page, 2)
		case "doc-1-chunk-6400":
			gt.Equal(t, chunk.Metadata.Page, 3)
		}
		gt.True(t, chunk.Metadata.Relevance == nil)
		gt.True(t, chunk.Embedding == nil)
	}
}

func TestChunkCountsCharactersNotBytes(t *testing.T) {
	content := strings.Repeat("日本語", 10) // 30 characters, 90 bytes
	c := chunker.New(chunker.WithChunkSize(10), chunker.WithOverlap(2))
	chunks, err := c.Chunk(newDoc(content))
	gt.NoError(t, err)

	for _, chunk := range chunks {
		gt.True(t, len([]rune(chunk.Content)) <= 10)
	}
	gt.Equal(t, chunks[1].ID, model.ChunkID("doc-1-chunk-8"))
}

func TestChunkInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		doc     *model.Document
		options []chunker.Option
	}{
		{"empty content", newDoc(""), nil},
		{"blank content", newDoc("   \n"), nil},
		{"nil document", nil, nil},
		{"overlap equals size", newDoc("abc"), []chunker.Option{chunker.WithChunkSize(10), chunker.WithOverlap(10)}},
		{"overlap exceeds size", newDoc("abc"), []chunker.Option{chunker.WithChunkSize(10), chunker.WithOverlap(11)}},
		{"negative overlap", newDoc("abc"), []chunker.Option{chunker.WithOverlap(-1)}},
		{"zero size", newDoc("abc"), []chunker.Option{chunker.WithChunkSize(0)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := chunker.New(tc.options...).Chunk(tc.doc)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidDocument))
		})
	}
}

func TestChunkDoesNotMutateDocument(t *testing.T) {
	doc := newDoc(strings.Repeat("SKILLS ", 200))
	before := *doc
	_, err := chunker.New().Chunk(doc)
	gt.NoError(t, err)
	gt.Equal(t, *doc, before)
}

func TestDetectSection(t *testing.T) {
	testCases := []struct {
		text string
		want model.Section
	}{
		{"SKILLS\n• Python", model.SectionSkills},
		{"Work Experience at DUTA", model.SectionExperience},
		{"EDUCATION: DePaul University", model.SectionEducation},
		{"PERSONAL PROJECTS", model.SectionProjects},
		{"a single project", model.SectionProjects},
		{"Skills gained through experience", model.SectionSkills},
		{"experience and education", model.SectionExperience},
		{"contact me", model.SectionGeneral},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			gt.Equal(t, chunker.DetectSection(tc.text), tc.want)
		})
	}
}
