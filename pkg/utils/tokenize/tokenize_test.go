package tokenize_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/utils/tokenize"
)

func TestTokens(t *testing.T) {
	testCases := []struct {
		input string
		want  []string
	}{
		{"What are Aswin's skills?", []string{"aswin", "skill"}},
		{"Python (advanced), SQL", []string{"python", "advanced", "sql"}},
		{"the and of", []string{}},
		{"Processes class", []string{"processe", "class"}},
		{"GPT-2 paper", []string{"gpt", "paper"}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			gt.Equal(t, tokenize.Tokens(tc.input), tc.want)
		})
	}
}

func TestKeywordsDistinct(t *testing.T) {
	gt.Equal(t, tokenize.Keywords("data science and data engineering"), []string{"data", "science", "engineering"})
}

func TestIsStopword(t *testing.T) {
	gt.True(t, tokenize.IsStopword("what"))
	gt.False(t, tokenize.IsStopword("aswin"))
}

func TestHasPronoun(t *testing.T) {
	gt.True(t, tokenize.HasPronoun("What did he build there?"))
	gt.True(t, tokenize.HasPronoun("Tell me more about THAT"))
	gt.False(t, tokenize.HasPronoun("What are Aswin's skills?"))
	gt.False(t, tokenize.HasPronoun("Thesis topics"))
}
