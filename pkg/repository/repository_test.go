package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/interfaces"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/repository"
)

func newSession(title string, updatedAt time.Time) *model.Session {
	confidence := 0.9
	relevance := 0.7
	reply := model.NewMessage(model.RoleAssistant, "Python and Go")
	reply.Confidence = &confidence
	reply.FollowUpSuggestions = []string{"What about projects?"}
	reply.Sources = []*model.DocumentChunk{
		{
			ID:         "resume-1-chunk-0",
			DocumentID: "resume-1",
			Content:    "SKILLS Python Go",
			Metadata:   model.ChunkMetadata{Section: model.SectionSkills, Page: 1, Relevance: &relevance},
		},
	}

	return &model.Session{
		ID:        model.NewSessionID(),
		Title:     title,
		CreatedAt: updatedAt.Add(-time.Minute),
		UpdatedAt: updatedAt,
		Messages: []*model.Message{
			model.NewMessage(model.RoleAssistant, "Hello"),
			model.NewMessage(model.RoleUser, title),
			reply,
		},
	}
}

func testSessionRepository(t *testing.T, repo interfaces.SessionRepository) {
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		session := newSession("What are the skills?", time.Now())
		gt.NoError(t, repo.PutSession(ctx, session))

		got, err := repo.GetSession(ctx, session.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.ID, session.ID)
		gt.Equal(t, got.Title, session.Title)
		gt.A(t, got.Messages).Length(3)
		gt.Equal(t, got.Messages[1].Role, model.RoleUser)
		gt.Equal(t, got.Messages[2].Content, "Python and Go")
		gt.Equal(t, *got.Messages[2].Confidence, 0.9)
		gt.A(t, got.Messages[2].Sources).Length(1)
		gt.Equal(t, got.Messages[2].Sources[0].Metadata.Section, model.SectionSkills)
	})

	t.Run("overwrite", func(t *testing.T) {
		session := newSession("first", time.Now())
		gt.NoError(t, repo.PutSession(ctx, session))

		session.Title = "second"
		session.Messages = session.Messages[:1]
		gt.NoError(t, repo.PutSession(ctx, session))

		got, err := repo.GetSession(ctx, session.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Title, "second")
		gt.A(t, got.Messages).Length(1)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetSession(ctx, model.SessionID("non-existent-session"))
		gt.True(t, errors.Is(err, model.ErrSessionNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		gt.True(t, errors.Is(repo.PutSession(ctx, &model.Session{}), model.ErrInvalidArgument))
	})

	t.Run("list newest first", func(t *testing.T) {
		base := time.Now().Add(time.Hour)
		older := newSession("older", base)
		newer := newSession("newer", base.Add(time.Minute))
		gt.NoError(t, repo.PutSession(ctx, older))
		gt.NoError(t, repo.PutSession(ctx, newer))

		sessions, err := repo.ListSessions(ctx, 0, 2)
		gt.NoError(t, err)
		gt.A(t, sessions).Length(2)
		gt.Equal(t, sessions[0].ID, newer.ID)
		gt.Equal(t, sessions[1].ID, older.ID)

		sessions, err = repo.ListSessions(ctx, 1, 1)
		gt.NoError(t, err)
		gt.A(t, sessions).Length(1)
		gt.Equal(t, sessions[0].ID, older.ID)

		sessions, err = repo.ListSessions(ctx, 10000, 10)
		gt.NoError(t, err)
		gt.A(t, sessions).Length(0)
	})
}

func testChunkRepository(t *testing.T, repo interfaces.ChunkRepository, dim int) {
	ctx := context.Background()

	vector := func(hot int) []float32 {
		v := make([]float32, dim)
		v[hot] = 1
		return v
	}
	chunks := []*model.DocumentChunk{
		{ID: "doc-chunk-0", DocumentID: "doc", Content: "skills", Embedding: vector(0), Metadata: model.ChunkMetadata{Section: model.SectionSkills, Page: 1}},
		{ID: "doc-chunk-400", DocumentID: "doc", Content: "experience", Embedding: vector(1), Metadata: model.ChunkMetadata{Section: model.SectionExperience, Page: 1, Offset: 400}},
		{ID: "doc-chunk-800", DocumentID: "doc", Content: "education", Embedding: vector(2), Metadata: model.ChunkMetadata{Section: model.SectionEducation, Page: 1, Offset: 800}},
	}
	gt.NoError(t, repo.PutChunks(ctx, chunks))

	query := vector(1)
	query[0] = 0.5
	results, err := repo.SearchChunks(ctx, query, 2)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].ID, model.ChunkID("doc-chunk-400"))
	gt.Equal(t, results[1].ID, model.ChunkID("doc-chunk-0"))
	gt.V(t, results[0].Metadata.Relevance).NotNil()
	gt.True(t, *results[0].Metadata.Relevance > *results[1].Metadata.Relevance)
	gt.Equal(t, results[0].Metadata.Offset, 400)
}

func TestMemory(t *testing.T) {
	repo := repository.NewMemory()
	testSessionRepository(t, repo)
	testChunkRepository(t, repo, 8)

	t.Run("chunk without embedding", func(t *testing.T) {
		err := repo.PutChunks(context.Background(), []*model.DocumentChunk{{ID: "x"}})
		gt.True(t, errors.Is(err, model.ErrInvalidArgument))
	})
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	repo, err := repository.NewSQLite(context.Background(), path)
	gt.NoError(t, err)
	t.Cleanup(func() { gt.NoError(t, repo.Close()) })

	testSessionRepository(t, repo)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	repo, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	session := newSession("persisted", time.Now())
	gt.NoError(t, repo.PutSession(ctx, session))
	gt.NoError(t, repo.Close())

	reopened, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSession(ctx, session.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Title, "persisted")
	gt.Equal(t, got.UpdatedAt.UnixNano(), session.UpdatedAt.UnixNano())
}

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestFirestoreSessions(t *testing.T) {
	testSessionRepository(t, setupFirestore(t))
}

func TestFirestoreChunks(t *testing.T) {
	// requires a vector index on chunks.Embedding with dimension 8
	testChunkRepository(t, setupFirestore(t), 8)
}
