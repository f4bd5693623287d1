package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionSessions = "sessions"
	collectionChunks   = "chunks"

	distanceField = "distance"
)

// Firestore persists sessions and the chunk mirror. Chunk embeddings are
// stored as Vector32 and searched with cosine FindNearest, which requires a
// vector index on chunks.Embedding with the embedder's dimension.
type Firestore struct {
	client *firestore.Client
}

// chunkDoc is the stored form of a DocumentChunk
type chunkDoc struct {
	ID         string             `firestore:"ID"`
	DocumentID string             `firestore:"DocumentID"`
	Content    string             `firestore:"Content"`
	Section    string             `firestore:"Section"`
	Page       int                `firestore:"Page"`
	Offset     int                `firestore:"Offset"`
	Embedding  firestore.Vector32 `firestore:"Embedding"`
}

func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}
	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "session id is required")
	}
	if _, err := r.client.Collection(collectionSessions).Doc(string(session.ID)).Set(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to put session", goerr.V("id", session.ID))
	}
	return nil
}

func (r *Firestore) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	snap, err := r.client.Collection(collectionSessions).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrSessionNotFound, "session not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}

	var session model.Session
	if err := snap.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("id", id))
	}
	return &session, nil
}

func (r *Firestore) ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	q := r.client.Collection(collectionSessions).OrderBy("UpdatedAt", firestore.Desc).Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	sessions := []*model.Session{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list sessions", goerr.V("offset", offset), goerr.V("limit", limit))
		}

		var session model.Session
		if err := snap.DataTo(&session); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session", goerr.V("doc_id", snap.Ref.ID))
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

func (r *Firestore) PutChunks(ctx context.Context, chunks []*model.DocumentChunk) error {
	coll := r.client.Collection(collectionChunks)
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return goerr.Wrap(model.ErrInvalidArgument, "chunk has no embedding", goerr.V("chunk_id", c.ID))
		}
		doc := &chunkDoc{
			ID:         string(c.ID),
			DocumentID: string(c.DocumentID),
			Content:    c.Content,
			Section:    string(c.Metadata.Section),
			Page:       c.Metadata.Page,
			Offset:     c.Metadata.Offset,
			Embedding:  firestore.Vector32(c.Embedding),
		}
		if _, err := coll.Doc(string(c.ID)).Set(ctx, doc); err != nil {
			return goerr.Wrap(err, "failed to put chunk", goerr.V("chunk_id", c.ID))
		}
	}
	return nil
}

// SearchChunks returns the nearest chunks with Relevance = 1 - cosine distance
func (r *Firestore) SearchChunks(ctx context.Context, embedding []float32, limit int) ([]*model.DocumentChunk, error) {
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "limit must be positive", goerr.V("limit", limit))
	}

	vq := r.client.Collection(collectionChunks).FindNearest("Embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var chunks []*model.DocumentChunk
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search chunks", goerr.V("limit", limit))
		}

		var doc chunkDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc_id", snap.Ref.ID))
		}

		chunk := &model.DocumentChunk{
			ID:         model.ChunkID(doc.ID),
			DocumentID: model.DocumentID(doc.DocumentID),
			Content:    doc.Content,
			Embedding:  []float32(doc.Embedding),
			Metadata: model.ChunkMetadata{
				Section: model.Section(doc.Section),
				Page:    doc.Page,
				Offset:  doc.Offset,
			},
		}

		relevance := 0.0
		if d, ok := snap.Data()[distanceField].(float64); ok {
			relevance = max(0, min(1, 1-d))
		}
		chunks = append(chunks, chunk.WithRelevance(relevance))
	}
	return chunks, nil
}
