// Package synth provides Synthesizer implementations.
package synth

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/utils/tokenize"
)

const (
	// DefaultScoreThreshold is the top chunk similarity that counts as a strong match
	DefaultScoreThreshold = 0.1
	// DefaultMaxLines bounds the number of extracted lines per answer
	DefaultMaxLines = 4
	// HedgeBelow is the confidence under which answers are explicitly hedged
	HedgeBelow = 0.5
	// ClarificationConfidence is reported when nothing was retrieved
	ClarificationConfidence = 0.2

	followUpCount = 3
	headingBonus  = 2.0
	// shorter lines are only deduplicated on exact match
	minFragment = 16
)

const (
	clarificationText = "I couldn't find anything in the available documents that answers that. " +
		"Could you rephrase, or ask about skills, experience, projects, or education?"
	hedgePrefix = "I'm not fully certain, but this is the closest information I found:"
)

// DefaultFollowUps are generic follow-up questions per section
var DefaultFollowUps = map[model.Section][]string{
	model.SectionSkills: {
		"Which programming languages are listed?",
		"What machine learning tools are mentioned?",
	},
	model.SectionExperience: {
		"What are the key achievements in the current role?",
		"What did the previous role involve?",
	},
	model.SectionEducation: {
		"Which degrees are listed?",
		"Where was the Master's degree completed?",
	},
	model.SectionProjects: {
		"What personal projects are described?",
		"Which technologies were used in the projects?",
	},
	model.SectionGeneral: {
		"What are the main technical skills?",
		"Tell me about the work experience",
	},
}

// Extractive answers by quoting the lines of the retrieved chunks that best
// match the query. It never states anything that is not in the chunks.
type Extractive struct {
	threshold float64
	maxLines  int
	followUps map[model.Section][]string
}

type ExtractiveOption func(*Extractive)

// WithScoreThreshold sets the similarity above which the top chunk adds confidence
func WithScoreThreshold(threshold float64) ExtractiveOption {
	return func(e *Extractive) {
		e.threshold = threshold
	}
}

// WithMaxLines sets how many lines an answer quotes at most
func WithMaxLines(n int) ExtractiveOption {
	return func(e *Extractive) {
		if n > 0 {
			e.maxLines = n
		}
	}
}

// WithFollowUps replaces the per-section follow-up table
func WithFollowUps(table map[model.Section][]string) ExtractiveOption {
	return func(e *Extractive) {
		e.followUps = table
	}
}

func NewExtractive(opts ...ExtractiveOption) *Extractive {
	e := &Extractive{
		threshold: DefaultScoreThreshold,
		maxLines:  DefaultMaxLines,
		followUps: DefaultFollowUps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type candidate struct {
	text    string
	section model.Section
	score   float64
	order   int
}

func (e *Extractive) Generate(ctx context.Context, query string, chunks []*model.DocumentChunk, history []*model.Message) (*model.Synthesis, error) {
	asked := askedQuestions(query, history)

	if len(chunks) == 0 {
		return &model.Synthesis{
			Content:             clarificationText,
			Confidence:          ClarificationConfidence,
			FollowUpSuggestions: e.suggest([]model.Section{model.SectionGeneral}, asked),
		}, nil
	}

	keywords := tokenize.Keywords(query)
	if tokenize.HasPronoun(query) {
		if prev := lastUserMessage(history); prev != "" {
			keywords = appendUnique(keywords, tokenize.Keywords(prev)...)
		}
	}

	coverage := keywordCoverage(keywords, chunks)
	confidence := 0.35 + 0.5*coverage
	if topScore(chunks) >= e.threshold {
		confidence += 0.1
	}
	confidence = math.Round(clamp(confidence)*100) / 100

	lines := e.extract(keywords, chunks)
	if len(lines) == 0 {
		// Nothing matched: quote the top chunk rather than guess
		confidence = min(confidence, HedgeBelow-0.05)
		lines = leadingLines(chunks[0], e.maxLines)
	}

	var sb strings.Builder
	if confidence < HedgeBelow {
		sb.WriteString(hedgePrefix)
	} else {
		sb.WriteString(fmt.Sprintf("Based on the %s section:", lines[0].section))
	}
	for _, l := range lines {
		sb.WriteString("\n- ")
		sb.WriteString(l.text)
	}

	return &model.Synthesis{
		Content:             sb.String(),
		Confidence:          confidence,
		FollowUpSuggestions: e.suggest(sectionsOf(chunks), asked),
	}, nil
}

// extract scores every line of every chunk and returns the best, deduplicated,
// in descending score order (ties in retrieval order)
func (e *Extractive) extract(keywords []string, chunks []*model.DocumentChunk) []candidate {
	if len(keywords) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		wanted[k] = struct{}{}
	}

	// lines cut at chunk boundaries are only quoted when nothing else matched
	var candidates, partials []candidate
	order := 0
	for _, chunk := range chunks {
		rawLines := strings.Split(chunk.Content, "\n")
		heading := ""
		headingHit := false
		for i, raw := range rawLines {
			line := cleanLine(raw)
			if line == "" {
				continue
			}
			if isHeading(line) {
				heading = line
				headingHit = hits(heading, wanted) > 0
				continue
			}

			score := float64(hits(line, wanted))
			if headingHit {
				score += headingBonus
			}
			if score == 0 {
				continue
			}
			section := chunk.Metadata.Section
			if section == "" {
				section = model.SectionGeneral
			}
			c := candidate{text: line, section: section, score: score, order: order}
			order++
			if isPartial(chunk, i, len(rawLines)) {
				partials = append(partials, c)
			} else {
				candidates = append(candidates, c)
			}
		}
	}
	if len(candidates) == 0 {
		candidates = partials
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.order - b.order
		}
	})

	var selected []candidate
	for _, c := range candidates {
		if len(selected) == e.maxLines {
			break
		}
		if covered(selected, c.text) {
			continue
		}
		selected = append(selected, c)
	}
	return selected
}

func (e *Extractive) suggest(sections []model.Section, asked map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(section model.Section) {
		for _, s := range e.followUps[section] {
			if len(out) >= followUpCount {
				return
			}
			key := normalizeQuestion(s)
			if _, ok := asked[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}

	for _, s := range sections {
		add(s)
	}
	for _, s := range model.Sections {
		add(s)
	}
	return out
}

func hits(text string, wanted map[string]struct{}) int {
	n := 0
	for _, tok := range tokenize.Keywords(text) {
		if _, ok := wanted[tok]; ok {
			n++
		}
	}
	return n
}

func keywordCoverage(keywords []string, chunks []*model.DocumentChunk) float64 {
	if len(keywords) == 0 {
		return 0
	}
	present := make(map[string]struct{})
	for _, chunk := range chunks {
		for _, tok := range tokenize.Tokens(chunk.Content) {
			present[tok] = struct{}{}
		}
	}
	found := 0
	for _, k := range keywords {
		if _, ok := present[k]; ok {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

func topScore(chunks []*model.DocumentChunk) float64 {
	if r := chunks[0].Metadata.Relevance; r != nil {
		return *r
	}
	return 0
}

func leadingLines(chunk *model.DocumentChunk, n int) []candidate {
	limit := min(n, 3)
	var out, partials []candidate
	rawLines := strings.Split(chunk.Content, "\n")
	for i, raw := range rawLines {
		line := cleanLine(raw)
		if line == "" || isHeading(line) {
			continue
		}
		c := candidate{text: line, section: chunk.Metadata.Section}
		if isPartial(chunk, i, len(rawLines)) {
			partials = append(partials, c)
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 && len(partials) > 0 {
		out = partials[:min(len(partials), limit)]
	}
	if len(out) == 0 {
		out = append(out, candidate{text: strings.TrimSpace(chunk.Content), section: chunk.Metadata.Section})
	}
	return out
}

// isPartial reports whether line i of chunk may have been cut by the chunk window
func isPartial(chunk *model.DocumentChunk, i, total int) bool {
	return (i == 0 && chunk.Metadata.Offset > 0) ||
		(i == total-1 && !strings.HasSuffix(chunk.Content, "\n"))
}

func sectionsOf(chunks []*model.DocumentChunk) []model.Section {
	var out []model.Section
	for _, c := range chunks {
		if !slices.Contains(out, c.Metadata.Section) {
			out = append(out, c.Metadata.Section)
		}
	}
	return out
}

func cleanLine(raw string) string {
	line := strings.TrimSpace(raw)
	line = strings.TrimLeft(line, "•*-· ")
	return strings.TrimSpace(line)
}

// isHeading matches short all-caps lines such as "SKILLS" or "PERSONAL PROJECTS"
func isHeading(line string) bool {
	if len(line) > 40 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

// covered reports whether text duplicates a selected line. Overlapping chunks
// repeat lines, and boundary cuts leave prefixes or suffixes of them.
func covered(selected []candidate, text string) bool {
	for _, s := range selected {
		if s.text == text {
			return true
		}
		shorter, longer := text, s.text
		if len(shorter) > len(longer) {
			shorter, longer = longer, shorter
		}
		if len(shorter) >= minFragment && strings.Contains(longer, shorter) {
			return true
		}
	}
	return false
}

func askedQuestions(query string, history []*model.Message) map[string]struct{} {
	asked := map[string]struct{}{normalizeQuestion(query): {}}
	for _, m := range history {
		if m.Role == model.RoleUser {
			asked[normalizeQuestion(m.Content)] = struct{}{}
		}
	}
	return asked
}

func normalizeQuestion(q string) string {
	return strings.Join(tokenize.Tokens(q), " ")
}

func lastUserMessage(history []*model.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func appendUnique(base []string, more ...string) []string {
	for _, m := range more {
		if !slices.Contains(base, m) {
			base = append(base, m)
		}
	}
	return base
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
