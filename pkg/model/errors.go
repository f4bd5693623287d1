package model

import "github.com/m-mizutani/goerr/v2"

var (
	// Index time
	ErrInvalidDocument   = goerr.New("invalid document")
	ErrDuplicateDocument = goerr.New("duplicate document")

	// Backends. Both are retried a bounded number of times.
	ErrEmbeddingUnavailable = goerr.New("embedding provider unavailable")
	ErrSynthesisUnavailable = goerr.New("synthesis backend unavailable")

	// Query time
	ErrIndexNotReady   = goerr.New("index is not ready")
	ErrEmptyQuery      = goerr.New("query is empty")
	ErrQueryInFlight   = goerr.New("another query is in flight")
	ErrNotIdle         = goerr.New("conversation is not idle")
	ErrQueryDenied     = goerr.New("query denied by policy")
	ErrInvalidArgument = goerr.New("invalid argument")

	// Persistence
	ErrSessionNotFound = goerr.New("session not found")
)
