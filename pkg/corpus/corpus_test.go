package corpus_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/corpus"
	"github.com/m-mizutani/resumerag/pkg/model"
)

func TestDefault(t *testing.T) {
	docs := corpus.Default()
	gt.A(t, docs).Length(1)
	gt.Equal(t, docs[0].ID, corpus.DefaultDocumentID)
	gt.Equal(t, docs[0].Type, model.DocumentTypeResume)
	gt.NoError(t, docs[0].Validate())
	gt.S(t, docs[0].Content).Contains("SKILLS")
	gt.S(t, docs[0].Content).Contains("EDUCATION")
}

func TestFollowUpsCoverAllSections(t *testing.T) {
	for _, s := range model.Sections {
		gt.A(t, corpus.FollowUps[s]).Longer(0)
	}
}

func TestLoadYAML(t *testing.T) {
	docs, err := corpus.LoadFile("testdata/corpus.yaml")
	gt.NoError(t, err)
	gt.A(t, docs).Length(2)

	gt.Equal(t, docs[0].ID, model.DocumentID("resume-1"))
	gt.Equal(t, docs[0].Content, "SKILLS\nPython, SQL, R\n")
	gt.Equal(t, docs[1].Type, model.DocumentTypeProject)
	gt.S(t, docs[1].Content).Contains("Streamlit")
	gt.Equal(t, docs[1].Metadata["url"], any("https://github.com/aswinguvvala"))
}

func TestLoadTOMLAndJSON(t *testing.T) {
	docs, err := corpus.LoadFiles("testdata/corpus.toml", "testdata/corpus.json")
	gt.NoError(t, err)
	gt.A(t, docs).Length(2)
	gt.Equal(t, docs[0].Type, model.DocumentTypeCertificate)
	gt.Equal(t, docs[1].ID, model.DocumentID("note-1"))
	gt.Equal(t, docs[1].Type, model.DocumentTypeOther)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "corpus.txt")
		gt.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		_, err := corpus.LoadFile(path)
		gt.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := corpus.LoadFile(filepath.Join(dir, "missing.yaml"))
		gt.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("documents: [\n"), 0644))
		_, err := corpus.LoadFile(path)
		gt.Error(t, err)
	})

	t.Run("missing content file", func(t *testing.T) {
		path := filepath.Join(dir, "ref.yaml")
		gt.NoError(t, os.WriteFile(path, []byte("documents:\n  - id: a\n    content_file: nope.txt\n"), 0644))
		_, err := corpus.LoadFile(path)
		gt.Error(t, err)
	})
}
