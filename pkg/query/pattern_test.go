package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/probelab/testprobe/pkg/query"
)

func TestPattern_Sexp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern query.Pattern
		want    string
	}{
		{
			name:    "bare kind",
			pattern: query.Pattern{Root: query.NodePattern{Kind: "go_statement"}},
			want:    "(go_statement)",
		},
		{
			name:    "wildcard",
			pattern: query.Pattern{Root: query.NodePattern{Capture: "any"}},
			want:    "(_) @any",
		},
		{
			name: "fields and captures",
			pattern: query.Pattern{Root: query.NodePattern{
				Kind: "function_declaration",
				Fields: []query.FieldPattern{
					{Name: "name", Value: query.NodePattern{Kind: "identifier", Capture: "name"}},
					{Name: "body", Value: query.NodePattern{Kind: "block", Capture: "body"}},
				},
			}},
			want: "(function_declaration name: (identifier) @name body: (block) @body)",
		},
		{
			name: "optional field quantifier precedes capture",
			pattern: query.Pattern{Root: query.NodePattern{
				Kind: "call_expression",
				Fields: []query.FieldPattern{
					{Name: "arguments", Value: query.NodePattern{Kind: "argument_list", Capture: "args"}, Optional: true},
				},
				Capture: "call",
			}},
			want: "(call_expression arguments: (argument_list)? @args) @call",
		},
		{
			name: "alternation",
			pattern: query.Pattern{Root: query.NodePattern{
				AnyOf: []query.NodePattern{
					{Kind: "interpreted_string_literal", Capture: "string"},
					{Kind: "raw_string_literal", Capture: "string"},
				},
			}},
			want: "[(interpreted_string_literal) @string (raw_string_literal) @string]",
		},
		{
			name: "anonymous children",
			pattern: query.Pattern{Root: query.NodePattern{
				Kind:     "go_statement",
				Children: []query.NodePattern{{Kind: "call_expression", Capture: "call"}},
				Capture:  "goroutine",
			}},
			want: "(go_statement (call_expression) @call) @goroutine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.pattern.Sexp())
		})
	}
}
