// Package tokenize splits text into normalized terms shared by the hash
// embedder and the extractive synthesizer, so both agree on what a keyword is.
package tokenize

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about all also am an and any are as at be been but by
		can could did do does for from had has have he her hers him his how i if in into is it its
		me my of on or our out she so some than that the their them then there these they this
		those to up us was we were what when where which who whom why will with would you your
		tell know like please give show describe list main`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether term is ignored for matching
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// Tokens returns normalized terms of text in order, repeats included.
// Terms are lowercased letter/digit runs of at least two characters, stopwords
// removed, with a plural "s" folded ("skills" and "skill" match).
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len([]rune(tok)) < 2 || IsStopword(tok) {
			continue
		}
		out = append(out, stem(tok))
	}
	return out
}

// Keywords returns the distinct terms of text in first-seen order
func Keywords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range Tokens(text) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func stem(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}

var pronouns = map[string]struct{}{
	"he": {}, "him": {}, "his": {}, "she": {}, "her": {}, "hers": {},
	"they": {}, "them": {}, "their": {}, "it": {}, "its": {},
	"that": {}, "this": {}, "those": {}, "these": {}, "there": {},
}

// HasPronoun reports whether text refers back to something by pronoun, which
// means the previous turn is needed to know what it is about
func HasPronoun(text string) bool {
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := pronouns[tok]; ok {
			return true
		}
	}
	return false
}
