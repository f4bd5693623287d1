package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	messages   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
`

// SQLite stores sessions in a local database file. Messages are kept as a
// JSON column.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path. Use ":memory:" for a
// transient store.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create sqlite schema", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "session id is required")
	}

	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return goerr.Wrap(err, "failed to encode messages", goerr.V("id", session.ID))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at, messages)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			messages = excluded.messages
	`, string(session.ID), session.Title, session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(), string(messages))
	if err != nil {
		return goerr.Wrap(err, "failed to put session", goerr.V("id", session.ID))
	}
	return nil
}

func (r *SQLite) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at, messages FROM sessions WHERE id = ?
	`, string(id))

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "session not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}
	return session, nil
}

func (r *SQLite) ListSessions(ctx context.Context, offset, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at, messages FROM sessions
		ORDER BY updated_at DESC LIMIT ? OFFSET ?
	`, limit, max(0, offset))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions", goerr.V("offset", offset), goerr.V("limit", limit))
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate sessions")
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*model.Session, error) {
	var (
		id, title, messages  string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&id, &title, &createdAt, &updatedAt, &messages); err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:        model.SessionID(id),
		Title:     title,
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: time.Unix(0, updatedAt),
	}
	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, goerr.Wrap(err, "failed to decode messages", goerr.V("id", id))
	}
	return session, nil
}
