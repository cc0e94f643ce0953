package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/syntax"
)

const callSource = `package sample

func TestMixedCalls(t *testing.T) {
	// assert.Equal(t, 1, 1) in a comment must not match
	url := "require.NoError inside a string"
	assert.Equal(t, 1, 1)
	require.NoError(t, nil)
	fmt.Println(url)
}
`

func qualifiedCallPattern() *query.Pattern {
	return &query.Pattern{
		Root: query.NodePattern{
			Kind: "call_expression",
			Fields: []query.FieldPattern{
				{Name: "function", Value: query.NodePattern{
					Kind: "selector_expression",
					Fields: []query.FieldPattern{
						{Name: "operand", Value: query.NodePattern{Kind: "identifier", Capture: "package"}},
						{Name: "field", Value: query.NodePattern{Kind: "field_identifier", Capture: "method"}},
					},
				}},
			},
			Capture: "call",
		},
	}
}

func parseSource(t *testing.T, source string) *syntax.Tree {
	t.Helper()

	tree, err := syntax.Parse(context.Background(), []byte(source))
	require.NoError(t, err)

	t.Cleanup(tree.Close)

	return tree
}

func TestEngine_MatchesBindPerRecord(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)
	matches := query.Default().Matches(qualifiedCallPattern(), tree.Root(), tree.Source())

	require.Len(t, matches, 3)

	// Package and method come from the same match record, never zipped
	// across separate matches.
	assert.Equal(t, "assert", matches[0].Text("package", tree.Source()))
	assert.Equal(t, "Equal", matches[0].Text("method", tree.Source()))
	assert.Equal(t, "require", matches[1].Text("package", tree.Source()))
	assert.Equal(t, "NoError", matches[1].Text("method", tree.Source()))
	assert.Equal(t, "fmt", matches[2].Text("package", tree.Source()))
	assert.Equal(t, "Println", matches[2].Text("method", tree.Source()))
}

func TestEngine_StructuralMatchingIgnoresCommentsAndStrings(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	pattern := qualifiedCallPattern()
	pattern.Predicates = []query.Predicate{query.Match("package", "^(assert|require)$")}

	matches := query.Default().Matches(pattern, tree.Root(), tree.Source())

	// The comment and the string literal mention assertions; only the
	// two real calls match.
	assert.Len(t, matches, 2)
}

func TestEngine_ResultAccessors(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	pattern := qualifiedCallPattern()
	pattern.Predicates = []query.Predicate{query.Match("package", "^assert$")}

	// Matches returns the exported record type; a predicate constructor
	// named Match coexists with it.
	var results []query.Result

	results = query.Default().Matches(pattern, tree.Root(), tree.Source())

	require.Len(t, results, 1)
	assert.True(t, results[0].Has("call"))
	assert.False(t, results[0].Has("absent"))
	assert.Empty(t, results[0].Text("absent", tree.Source()))

	_, ok := results[0].Node("absent")
	assert.False(t, ok)
}

func TestEngine_EqPredicate(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	pattern := qualifiedCallPattern()
	pattern.Predicates = []query.Predicate{
		query.Eq("package", "fmt"),
		query.Eq("method", "Println"),
	}

	assert.Equal(t, 1, query.Default().Count(pattern, tree.Root(), tree.Source()))
}

func TestEngine_PredicateOverAbsentCaptureFailsMatch(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	pattern := qualifiedCallPattern()
	pattern.Predicates = []query.Predicate{query.Eq("missing", "anything")}

	assert.Empty(t, query.Default().Matches(pattern, tree.Root(), tree.Source()))
}

func TestEngine_UncompilablePatternYieldsEmpty(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	bogus := &query.Pattern{Root: query.NodePattern{Kind: "no_such_node_kind"}}

	// Broken patterns are remembered; repeated use stays empty.
	assert.Empty(t, query.Default().Matches(bogus, tree.Root(), tree.Source()))
	assert.Empty(t, query.Default().Matches(bogus, tree.Root(), tree.Source()))
}

func TestEngine_Exists(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)

	engine := query.NewEngine(syntax.Language())

	assert.True(t, engine.Exists(qualifiedCallPattern(), tree.Root(), tree.Source()))
	assert.False(t, engine.Exists(&query.Pattern{Root: query.NodePattern{Kind: "go_statement"}}, tree.Root(), tree.Source()))
}

func TestEngine_MatchesAreInDocumentOrder(t *testing.T) {
	t.Parallel()

	tree := parseSource(t, callSource)
	matches := query.Default().Matches(qualifiedCallPattern(), tree.Root(), tree.Source())

	require.Len(t, matches, 3)

	lines := make([]int, 0, len(matches))

	for _, match := range matches {
		node, ok := match.Node("call")
		require.True(t, ok)

		lines = append(lines, syntax.StartLine(node))
	}

	assert.IsIncreasing(t, lines)
}
