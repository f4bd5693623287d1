package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

type DocumentID string

type DocumentType string

const (
	DocumentTypeResume      DocumentType = "resume"
	DocumentTypeProject     DocumentType = "project"
	DocumentTypeCertificate DocumentType = "certificate"
	DocumentTypeOther       DocumentType = "other"
)

// Validate checks if the document type is valid
func (t DocumentType) Validate() error {
	switch t {
	case DocumentTypeResume, DocumentTypeProject, DocumentTypeCertificate, DocumentTypeOther:
		return nil
	default:
		return goerr.Wrap(ErrInvalidDocument, "unknown document type", goerr.V("type", t))
	}
}

// Document is a raw source document. It is never modified after it is stored.
type Document struct {
	ID       DocumentID     `json:"id" yaml:"id" toml:"id"`
	Name     string         `json:"name" yaml:"name" toml:"name"`
	Content  string         `json:"content" yaml:"content" toml:"content"`
	Type     DocumentType   `json:"type" yaml:"type" toml:"type"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// Validate checks required fields of the document
func (d *Document) Validate() error {
	if d == nil {
		return goerr.Wrap(ErrInvalidDocument, "document is nil")
	}
	if d.ID == "" {
		return goerr.Wrap(ErrInvalidDocument, "document id is empty")
	}
	if err := d.Type.Validate(); err != nil {
		return goerr.Wrap(err, "invalid document", goerr.V("id", d.ID))
	}
	if strings.TrimSpace(d.Content) == "" {
		return goerr.Wrap(ErrInvalidDocument, "document content is empty", goerr.V("id", d.ID))
	}
	return nil
}
