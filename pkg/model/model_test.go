package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/model"
)

func TestDocumentValidate(t *testing.T) {
	testCases := []struct {
		name    string
		doc     *model.Document
		wantErr bool
	}{
		{
			name: "valid",
			doc:  &model.Document{ID: "resume-1", Type: model.DocumentTypeResume, Content: "SKILLS"},
		},
		{
			name:    "nil",
			doc:     nil,
			wantErr: true,
		},
		{
			name:    "empty id",
			doc:     &model.Document{Type: model.DocumentTypeResume, Content: "SKILLS"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			doc:     &model.Document{ID: "x", Type: "blog", Content: "SKILLS"},
			wantErr: true,
		},
		{
			name:    "blank content",
			doc:     &model.Document{ID: "x", Type: model.DocumentTypeOther, Content: " \n\t"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doc.Validate()
			if tc.wantErr {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, model.ErrInvalidDocument))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestNewChunkID(t *testing.T) {
	gt.Equal(t, model.NewChunkID("resume-1", 400), model.ChunkID("resume-1-chunk-400"))
}

func TestWithRelevanceCopies(t *testing.T) {
	chunk := &model.DocumentChunk{ID: "a", Content: "x"}
	scored := chunk.WithRelevance(0.5)

	gt.V(t, scored.Metadata.Relevance).NotNil()
	gt.Equal(t, *scored.Metadata.Relevance, 0.5)
	gt.True(t, chunk.Metadata.Relevance == nil)
}

func TestNewMessageIDOrdered(t *testing.T) {
	prev := model.NewMessageID()
	for i := 0; i < 100; i++ {
		next := model.NewMessageID()
		gt.True(t, strings.Compare(string(prev), string(next)) < 0)
		prev = next
	}
}
