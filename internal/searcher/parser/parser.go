// Package parser turns a raw query line into the token sequence the fuzzy
// matcher aligns against the index.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/indexer/tokenizer"
)

var lexer = tokenizer.New()

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse splits query with the same lexer used for indexing, so a query
// token can only ever match a token that was indexed verbatim.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	plan.Terms = append(plan.Terms, lexer.Tokens(query)...)
	return plan
}

// Empty reports whether the plan has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
