package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
	"github.com/m-mizutani/resumerag/pkg/utils/tokenize"
)

// Submit appends query as a user message, answers it and appends the
// assistant reply, which is also returned. Any failure while answering
// resolves with an apology reply and no error. If ctx is cancelled the user
// message is rolled back and ctx.Err() is returned.
func (s *Session) Submit(ctx context.Context, query string) (*model.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(model.ErrEmptyQuery, "query is blank")
	}
	if !s.retriever.Ready() {
		return nil, goerr.Wrap(model.ErrIndexNotReady, "submit before initialize", goerr.V("session_id", s.id))
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, goerr.Wrap(model.ErrQueryInFlight, "previous query is still being answered", goerr.V("session_id", s.id))
	}
	history := append([]*model.Message(nil), s.messages...)
	s.messages = append(s.messages, model.NewMessage(model.RoleUser, query))
	s.state = StateAwaitingResponse
	s.mu.Unlock()

	logger := logging.From(ctx).With("session_id", s.id)
	ctx = logging.With(ctx, logger)

	reply, err := s.respond(ctx, query, history)

	s.mu.Lock()
	s.state = StateIdle
	if err != nil {
		// no other append can happen while awaiting, so the user message is last
		s.messages = s.messages[:len(s.messages)-1]
		s.mu.Unlock()
		return nil, err
	}
	s.messages = append(s.messages, reply)
	snapshot, revision := s.snapshot()
	s.mu.Unlock()

	s.persist(ctx, snapshot, revision)
	return copyMessage(reply), nil
}

func (s *Session) respond(ctx context.Context, query string, history []*model.Message) (*model.Message, error) {
	logger := logging.From(ctx)

	if s.guard != nil {
		reasons, err := s.guard.Check(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, goerr.Wrap(ctx.Err(), "guard aborted")
			}
			// fail closed
			logger.Error("guard evaluation failed", "error", err)
			return model.NewMessage(model.RoleAssistant, RefusalText), nil
		}
		if len(reasons) > 0 {
			logger.Info("query denied", "reasons", reasons)
			return model.NewMessage(model.RoleAssistant, RefusalText), nil
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, contextualQuery(query, history), s.topK)
	if err != nil {
		return s.failed(ctx, err)
	}

	synthesis, err := retry.Do(ctx, s.policy, model.ErrSynthesisUnavailable, func(ctx context.Context) (*model.Synthesis, error) {
		return s.synthesizer.Generate(ctx, query, chunks, history)
	})
	if err != nil {
		return s.failed(ctx, err)
	}

	reply := model.NewMessage(model.RoleAssistant, synthesis.Content)
	reply.Sources = make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		src := *c
		src.Embedding = nil
		reply.Sources[i] = &src
	}
	confidence := synthesis.Confidence
	reply.Confidence = &confidence
	reply.FollowUpSuggestions = append([]string(nil), synthesis.FollowUpSuggestions...)

	logger.Debug("query answered",
		"sources", len(reply.Sources),
		"confidence", confidence)

	return reply, nil
}

func (s *Session) failed(ctx context.Context, err error) (*model.Message, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, goerr.Wrap(ctxErr, "query cancelled")
	}
	logger := logging.From(ctx)
	if errors.Is(err, model.ErrEmbeddingUnavailable) || errors.Is(err, model.ErrSynthesisUnavailable) {
		logger.Warn("backend unavailable, replying with apology", "error", err)
	} else {
		logger.Error("failed to answer query, replying with apology", "error", err)
	}
	return model.NewMessage(model.RoleAssistant, ApologyText), nil
}

// contextualQuery prepends the previous user turn when query leans on it
// through pronouns, e.g. "what did he do there?"
func contextualQuery(query string, history []*model.Message) string {
	if !tokenize.HasPronoun(query) {
		return query
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return history[i].Content + " " + query
		}
	}
	return query
}
