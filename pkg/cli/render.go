package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/resumerag/pkg/model"
)

// printReply writes an assistant message with its confidence, sources and follow-ups
func printReply(w io.Writer, msg *model.Message) {
	fmt.Fprintf(w, "\n%s\n", msg.Content)

	if msg.Confidence != nil {
		fmt.Fprintf(w, "\n  confidence: %.2f\n", *msg.Confidence)
	}
	if len(msg.Sources) > 0 {
		sources := make([]string, len(msg.Sources))
		for i, s := range msg.Sources {
			relevance := 0.0
			if s.Metadata.Relevance != nil {
				relevance = *s.Metadata.Relevance
			}
			sources[i] = fmt.Sprintf("%s (%s, %.2f)", s.ID, s.Metadata.Section, relevance)
		}
		fmt.Fprintf(w, "  sources: %s\n", strings.Join(sources, ", "))
	}
	if len(msg.FollowUpSuggestions) > 0 {
		fmt.Fprintf(w, "\n  You could also ask:\n")
		for _, q := range msg.FollowUpSuggestions {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	fmt.Fprintln(w)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
