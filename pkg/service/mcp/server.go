// Package mcp exposes conversations over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/interfaces"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "resumerag"
	serverVersion = "0.1.0"

	// DefaultSessionID is used by tools called without session_id
	DefaultSessionID model.SessionID = "default"
)

// Server serves ask, search, history, export and reset tools. Sessions are
// created on first use and shared by all clients naming the same ID.
type Server struct {
	retriever   interfaces.Retriever
	repo        interfaces.SessionRepository
	sessionOpts []conversation.Option
	server      *mcp.Server

	mu       sync.Mutex
	sessions map[model.SessionID]*conversation.Session
}

type Option func(*Server)

// WithSessionOptions is applied to every session the server creates
func WithSessionOptions(opts ...conversation.Option) Option {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithRepository resumes persisted sessions and persists new ones
func WithRepository(repo interfaces.SessionRepository) Option {
	return func(s *Server) {
		s.repo = repo
	}
}

func New(retriever interfaces.Retriever, opts ...Option) *Server {
	s := &Server{
		retriever: retriever,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
		sessions: make(map[model.SessionID]*conversation.Session),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Default().Warn("failed to shutdown mcp http server", "error", err)
		}
	}()

	logging.From(ctx).Info("mcp server listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return goerr.Wrap(err, "mcp http server stopped", goerr.V("addr", addr))
	}
	return nil
}

func (s *Server) session(ctx context.Context, id model.SessionID) (*conversation.Session, error) {
	if id == "" {
		id = DefaultSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	opts := append([]conversation.Option{}, s.sessionOpts...)
	opts = append(opts, conversation.WithSessionID(id))
	if s.repo != nil {
		opts = append(opts, conversation.WithRepository(s.repo))

		stored, err := s.repo.GetSession(ctx, id)
		switch {
		case err == nil:
			opts = append(opts, conversation.WithHistory(stored))
		case errors.Is(err, model.ErrSessionNotFound):
		default:
			return nil, goerr.Wrap(err, "failed to load session", goerr.V("session_id", id))
		}
	}

	sess := conversation.New(s.retriever, opts...)
	s.sessions[id] = sess
	return sess, nil
}
