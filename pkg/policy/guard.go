// Package policy evaluates Rego policies that decide whether a query may be
// answered.
//
// Policies live in package guard and add reasons to the deny set:
//
//	package guard
//
//	deny contains "compensation details are private" if {
//		some k in input.keywords
//		k in {"salary", "compensation"}
//	}
package policy

import (
	"context"
	"fmt"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/m-mizutani/resumerag/pkg/utils/tokenize"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

const guardQuery = "data.guard"

// printHook forwards Rego print() output to the context logger
type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Guard checks queries against the deny rules of package guard
type Guard struct {
	query *rego.PreparedEvalQuery
}

// New loads *.rego files from policyDir. A directory without policies yields
// a Guard that allows everything.
func New(ctx context.Context, policyDir string) (*Guard, error) {
	q, err := loadPolicy(ctx, policyDir, guardQuery)
	if err != nil {
		return nil, err
	}
	return &Guard{query: q}, nil
}

// Check returns the sorted deny reasons for query
func (g *Guard) Check(ctx context.Context, query string) ([]string, error) {
	if g.query == nil {
		return nil, nil
	}

	// input.query is the raw query, input.keywords its distinct lowercase terms
	input := map[string]any{
		"query":    query,
		"keywords": tokenize.Keywords(query),
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&printHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate guard policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("unexpected guard policy result",
			goerr.V("value", rs[0].Expressions[0].Value))
	}

	raw, ok := data["deny"].([]any)
	if !ok {
		return nil, nil
	}

	reasons := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			reasons = append(reasons, s)
		} else {
			reasons = append(reasons, fmt.Sprint(r))
		}
	}
	slices.Sort(reasons)
	return reasons, nil
}
