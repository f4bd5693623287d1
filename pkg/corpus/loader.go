package corpus

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileDocument is a document entry in a corpus file. Content may be inline or
// read from ContentFile, resolved relative to the corpus file.
type fileDocument struct {
	ID          string         `json:"id" yaml:"id" toml:"id"`
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Type        string         `json:"type" yaml:"type" toml:"type"`
	Content     string         `json:"content" yaml:"content" toml:"content"`
	ContentFile string         `json:"content_file" yaml:"content_file" toml:"content_file"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata" toml:"metadata"`
}

type fileCorpus struct {
	Documents []fileDocument `json:"documents" yaml:"documents" toml:"documents"`
}

// LoadFiles reads documents from each path in order. The format is chosen by
// extension: .yaml/.yml, .toml or .json. Documents are not validated here;
// validation is part of indexing so one bad entry does not block the rest.
func LoadFiles(paths ...string) ([]*model.Document, error) {
	var docs []*model.Document
	for _, path := range paths {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// LoadFile reads documents from a single corpus file
func LoadFile(path string) ([]*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read corpus file", goerr.V("path", path))
	}

	var fc fileCorpus
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&fc)
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		return nil, goerr.New("unsupported corpus file format",
			goerr.V("path", path),
			goerr.V("extension", ext),
			goerr.V("supported", []string{".yaml", ".yml", ".toml", ".json"}))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse corpus file", goerr.V("path", path))
	}

	docs := make([]*model.Document, 0, len(fc.Documents))
	for i, fd := range fc.Documents {
		content := fd.Content
		if fd.ContentFile != "" {
			contentPath := fd.ContentFile
			if !filepath.IsAbs(contentPath) {
				contentPath = filepath.Join(filepath.Dir(path), contentPath)
			}
			raw, err := os.ReadFile(contentPath)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to read document content file",
					goerr.V("path", path),
					goerr.V("index", i),
					goerr.V("content_file", contentPath))
			}
			content = string(raw)
		}

		docType := model.DocumentType(fd.Type)
		if docType == "" {
			docType = model.DocumentTypeOther
		}

		docs = append(docs, &model.Document{
			ID:       model.DocumentID(fd.ID),
			Name:     fd.Name,
			Content:  content,
			Type:     docType,
			Metadata: fd.Metadata,
		})
	}

	return docs, nil
}
