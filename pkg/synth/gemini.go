package synth

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/answer.md
var answerPromptRaw string

var answerPromptTmpl = template.Must(template.New("answer").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).Parse(answerPromptRaw))

// DefaultHistoryWindow is the number of recent messages put in the prompt
const DefaultHistoryWindow = 6

// Gemini synthesizes answers with a Gemini model and structured JSON output
type Gemini struct {
	client        adapter.Gemini
	historyWindow int
	schema        *genai.Schema
}

type GeminiOption func(*Gemini)

// WithHistoryWindow sets how many recent messages are included in the prompt
func WithHistoryWindow(n int) GeminiOption {
	return func(g *Gemini) {
		if n >= 0 {
			g.historyWindow = n
		}
	}
}

func NewGemini(client adapter.Gemini, opts ...GeminiOption) (*Gemini, error) {
	schema, err := convertJSONSchemaToGenai(answerSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build answer schema")
	}

	g := &Gemini{
		client:        client,
		historyWindow: DefaultHistoryWindow,
		schema:        schema,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type promptChunk struct {
	Section   model.Section
	Relevance float64
	Content   string
}

type promptMessage struct {
	Role    string
	Content string
}

func (g *Gemini) Generate(ctx context.Context, query string, chunks []*model.DocumentChunk, history []*model.Message) (*model.Synthesis, error) {
	if len(chunks) == 0 {
		// Nothing to ground on; the model is not asked at all
		return NewExtractive().Generate(ctx, query, nil, history)
	}

	prompt, err := g.buildPrompt(query, chunks, history)
	if err != nil {
		return nil, err
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   g.schema,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(model.ErrSynthesisUnavailable, err), "gemini generation failed")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrSynthesisUnavailable, "invalid response structure from gemini")
	}

	rawJSON := resp.Candidates[0].Content.Parts[0].Text
	var result model.Synthesis
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return nil, goerr.Wrap(errors.Join(model.ErrSynthesisUnavailable, err), "failed to unmarshal answer JSON",
			goerr.V("json", rawJSON))
	}
	if strings.TrimSpace(result.Content) == "" {
		return nil, goerr.Wrap(model.ErrSynthesisUnavailable, "empty answer from gemini")
	}

	result.Confidence = clamp(result.Confidence)
	if len(result.FollowUpSuggestions) > model.MaxFollowUpSuggestions {
		result.FollowUpSuggestions = result.FollowUpSuggestions[:model.MaxFollowUpSuggestions]
	}

	logging.From(ctx).Debug("gemini answer generated",
		"confidence", result.Confidence,
		"chunks", len(chunks),
		"follow_ups", len(result.FollowUpSuggestions))

	return &result, nil
}

func (g *Gemini) buildPrompt(query string, chunks []*model.DocumentChunk, history []*model.Message) (string, error) {
	pc := make([]promptChunk, 0, len(chunks))
	for _, c := range chunks {
		var relevance float64
		if c.Metadata.Relevance != nil {
			relevance = *c.Metadata.Relevance
		}
		pc = append(pc, promptChunk{Section: c.Metadata.Section, Relevance: relevance, Content: c.Content})
	}

	recent := history
	if len(recent) > g.historyWindow {
		recent = recent[len(recent)-g.historyWindow:]
	}
	pm := make([]promptMessage, 0, len(recent))
	for _, m := range recent {
		pm = append(pm, promptMessage{Role: string(m.Role), Content: m.Content})
	}

	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, map[string]any{
		"Query":   query,
		"Chunks":  pc,
		"History": pm,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute answer prompt template")
	}
	return buf.String(), nil
}
