// Package docstore holds the source documents an index is built from.
package docstore

import (
	"maps"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
)

// Store owns documents by ID. Stored documents are copies and are never
// modified; Get and List return further copies.
type Store struct {
	mu    sync.RWMutex
	docs  map[model.DocumentID]*model.Document
	order []model.DocumentID
}

func New() *Store {
	return &Store{
		docs: make(map[model.DocumentID]*model.Document),
	}
}

// Put validates and stores doc. A second document with the same ID is rejected.
func (s *Store) Put(doc *model.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return goerr.Wrap(model.ErrDuplicateDocument, "document already stored", goerr.V("id", doc.ID))
	}
	s.docs[doc.ID] = clone(doc)
	s.order = append(s.order, doc.ID)
	return nil
}

// Get returns the document with id, or false
func (s *Store) Get(id model.DocumentID) (*model.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return clone(doc), true
}

// List returns documents in insertion order
func (s *Store) List() []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.docs[id]))
	}
	return out
}

// Len returns the number of stored documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func clone(doc *model.Document) *model.Document {
	copied := *doc
	copied.Metadata = maps.Clone(doc.Metadata)
	return &copied
}
