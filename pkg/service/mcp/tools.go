package mcp

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultSearchLimit = 5

type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation to use. Omit for the default session."`
}

type AskInput struct {
	Question  string `json:"question" jsonschema:"Question about the candidate's background"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation to continue. Omit for the default session."`
}

type SourceOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Section    string  `json:"section"`
	Relevance  float64 `json:"relevance"`
	Content    string  `json:"content,omitempty"`
}

type AskOutput struct {
	Answer    string         `json:"answer"`
	Sources   []SourceOutput `json:"sources"`
	FollowUps []string       `json:"follow_up_suggestions"`
	// Confidence is omitted when the answer is an apology or refusal
	Confidence *float64 `json:"confidence,omitempty"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"Text to search the indexed documents for"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of chunks, 5 by default"`
}

type SearchOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

type MessageOutput struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type HistoryOutput struct {
	SessionID string          `json:"session_id"`
	Messages  []MessageOutput `json:"messages"`
}

type ExportOutput struct {
	Filename   string `json:"filename"`
	Transcript string `json:"transcript"`
}

type ResetOutput struct {
	SessionID string `json:"session_id"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about the candidate's resume, skills, experience or projects",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Return the document chunks most relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "List the messages of a conversation in chronological order",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export",
		Description: "Render a conversation as a plain text transcript",
	}, s.handleExport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset",
		Description: "Clear a conversation back to the greeting",
	}, s.handleReset)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	sess, err := s.session(ctx, model.SessionID(input.SessionID))
	if err != nil {
		return nil, AskOutput{}, err
	}

	reply, err := sess.Submit(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, goerr.Wrap(err, "failed to answer question", goerr.V("session_id", sess.ID()))
	}

	output := AskOutput{
		Answer:     reply.Content,
		Sources:    toSources(reply.Sources, false),
		FollowUps:  reply.FollowUpSuggestions,
		Confidence: reply.Confidence,
	}
	if output.FollowUps == nil {
		output.FollowUps = []string{}
	}
	return nil, output, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	chunks, err := s.retriever.Retrieve(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, goerr.Wrap(err, "failed to search", goerr.V("limit", limit))
	}

	results := toSources(chunks, true)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, HistoryOutput, error) {
	sess, err := s.session(ctx, model.SessionID(input.SessionID))
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	history := sess.History()
	output := HistoryOutput{
		SessionID: string(sess.ID()),
		Messages:  make([]MessageOutput, len(history)),
	}
	for i, m := range history {
		output.Messages[i] = MessageOutput{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

func (s *Server) handleExport(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, ExportOutput, error) {
	sess, err := s.session(ctx, model.SessionID(input.SessionID))
	if err != nil {
		return nil, ExportOutput{}, err
	}

	return nil, ExportOutput{
		Filename:   conversation.ExportFilename(time.Now()),
		Transcript: sess.Export(),
	}, nil
}

func (s *Server) handleReset(ctx context.Context, _ *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, ResetOutput, error) {
	sess, err := s.session(ctx, model.SessionID(input.SessionID))
	if err != nil {
		return nil, ResetOutput{}, err
	}
	if err := sess.Reset(ctx); err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{SessionID: string(sess.ID())}, nil
}

func toSources(chunks []*model.DocumentChunk, withContent bool) []SourceOutput {
	out := make([]SourceOutput, len(chunks))
	for i, c := range chunks {
		out[i] = SourceOutput{
			ChunkID:    string(c.ID),
			DocumentID: string(c.DocumentID),
			Section:    string(c.Metadata.Section),
		}
		if c.Metadata.Relevance != nil {
			out[i].Relevance = *c.Metadata.Relevance
		}
		if withContent {
			out[i].Content = c.Content
		}
	}
	return out
}
