package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "single word", query: "main", want: []string{"main"}},
		{name: "punctuation is dropped", query: "fn main() {", want: []string{"fn", "main"}},
		{name: "case is kept", query: "Foo foo", want: []string{"Foo", "foo"}},
		{name: "underscores and digits", query: "x_1 = 42", want: []string{"x_1", "42"}},
		{name: "newline is skipped", query: "a\nb", want: []string{"a", "b"}},
		{name: "blank", query: "   ", want: []string{}},
		{name: "empty", query: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.want, plan.Terms)
			assert.Equal(t, tt.query, plan.RawQuery)
			assert.Equal(t, len(tt.want) == 0, plan.Empty())
		})
	}
}
