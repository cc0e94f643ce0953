package checkers

import (
	"regexp"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/syntax"
	"github.com/probelab/testprobe/pkg/testunit"
)

// errCheckShape matches the idiomatic error-handling condition. If
// statements of this shape are not counted as control flow.
var errCheckShape = regexp.MustCompile(`\berr\s*!=\s*nil\b`)

// CallSite is one qualified call (package.Method(...)) found in scope.
type CallSite struct {
	Node    sitter.Node
	Package string
	Method  string
}

// anchor wraps a rule pattern so it must match the whole identifier.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}

func qualifiedCallPattern(packagePattern, methodPattern string) *query.Pattern {
	predicates := []query.Predicate{query.Match("package", anchor(packagePattern))}
	if methodPattern != "" {
		predicates = append(predicates, query.Match("method", anchor(methodPattern)))
	}

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
		Predicates: predicates,
	}
}

func callSites(root sitter.Node, source []byte, packagePattern, methodPattern string) []CallSite {
	matches := query.Default().Matches(qualifiedCallPattern(packagePattern, methodPattern), root, source)

	sites := make([]CallSite, 0, len(matches))

	for _, match := range matches {
		call, ok := match.Node("call")
		if !ok {
			continue
		}

		sites = append(sites, CallSite{
			Node:    call,
			Package: match.Text("package", source),
			Method:  match.Text("method", source),
		})
	}

	return sites
}

// FindCalls returns every call in the unit's scope whose package and
// method identifiers match the given patterns. Package and method are
// bound from the same match record, so sites are never mispaired. An
// empty methodPattern matches any method.
func FindCalls(unit *testunit.Unit, packagePattern, methodPattern string) []CallSite {
	return callSites(unit.Body, unit.Source, packagePattern, methodPattern)
}

// HasCall reports whether at least one matching call exists in scope.
func HasCall(unit *testunit.Unit, packagePattern, methodPattern string) bool {
	return len(FindCalls(unit, packagePattern, methodPattern)) > 0
}

var goroutinePattern = &query.Pattern{
	Root: query.NodePattern{
		Kind:     "go_statement",
		Children: []query.NodePattern{{Kind: "call_expression"}},
		Capture:  "goroutine",
	},
}

// FindGoroutines returns every goroutine launch in the unit's scope.
func FindGoroutines(unit *testunit.Unit) []sitter.Node {
	return capturedNodes(goroutinePattern, unit.Body, unit.Source, "goroutine")
}

var deferPattern = &query.Pattern{
	Root: query.NodePattern{
		Kind:    "defer_statement",
		Capture: "defer",
	},
}

// FindDefers returns every defer statement in the unit's scope.
func FindDefers(unit *testunit.Unit) []sitter.Node {
	return capturedNodes(deferPattern, unit.Body, unit.Source, "defer")
}

// HasDeferredCall reports whether any defer statement in scope contains
// a call whose method matches the pattern, including calls made inside
// a deferred function literal.
func HasDeferredCall(unit *testunit.Unit, methodPattern string) bool {
	for _, deferred := range FindDefers(unit) {
		if len(callSites(deferred, unit.Source, ".*", methodPattern)) > 0 {
			return true
		}
	}

	return false
}

var controlFlowPattern = &query.Pattern{
	Root: query.NodePattern{
		AnyOf: []query.NodePattern{
			{Kind: "for_statement", Capture: "flow"},
			{Kind: "if_statement",
				Fields:  []query.FieldPattern{{Name: "condition", Value: query.NodePattern{Capture: "condition"}}},
				Capture: "if"},
			{Kind: "expression_switch_statement", Capture: "flow"},
			{Kind: "type_switch_statement", Capture: "flow"},
			{Kind: "select_statement", Capture: "flow"},
		},
	},
}

// CountControlFlow counts for, if, switch, and select statements in the
// unit's scope. Each statement counts once; if statements whose
// condition is an "err != nil" check are skipped as idiomatic error
// handling, not test logic.
func CountControlFlow(unit *testunit.Unit) int {
	matches := query.Default().Matches(controlFlowPattern, unit.Body, unit.Source)

	count := 0

	for _, match := range matches {
		if match.Has("if") {
			if errCheckShape.MatchString(match.Text("condition", unit.Source)) {
				continue
			}
		}

		count++
	}

	return count
}

var (
	testifyAssertionPattern = &query.Pattern{
		Root: query.NodePattern{
			Kind: "call_expression",
			Fields: []query.FieldPattern{
				{Name: "function", Value: query.NodePattern{
					Kind: "selector_expression",
					Fields: []query.FieldPattern{
						{Name: "operand", Value: query.NodePattern{Kind: "identifier", Capture: "object"}},
						{Name: "field", Value: query.NodePattern{Kind: "field_identifier"}},
					},
				}},
			},
			Capture: "assertion",
		},
		Predicates: []query.Predicate{query.Match("object", "^(assert|require)$")},
	}

	testingAssertionPattern = &query.Pattern{
		Root: query.NodePattern{
			Kind: "call_expression",
			Fields: []query.FieldPattern{
				{Name: "function", Value: query.NodePattern{
					Kind: "selector_expression",
					Fields: []query.FieldPattern{
						{Name: "operand", Value: query.NodePattern{Kind: "identifier", Capture: "object"}},
						{Name: "field", Value: query.NodePattern{Kind: "field_identifier", Capture: "method"}},
					},
				}},
			},
			Capture: "assertion",
		},
		Predicates: []query.Predicate{
			query.Eq("object", "t"),
			query.Match("method", "^(Error|Fatal|Errorf|Fatalf)$"),
		},
	}
)

// CountAssertions counts testify assert/require calls plus the
// t.Error/t.Fatal family in the unit's scope. Only structural calls
// count; text in comments or strings does not.
func CountAssertions(unit *testunit.Unit) int {
	engine := query.Default()

	return engine.Count(testifyAssertionPattern, unit.Body, unit.Source) +
		engine.Count(testingAssertionPattern, unit.Body, unit.Source)
}

var stringLiteralPattern = &query.Pattern{
	Root: query.NodePattern{
		AnyOf: []query.NodePattern{
			{Kind: "interpreted_string_literal", Capture: "string"},
			{Kind: "raw_string_literal", Capture: "string"},
		},
	},
}

// FindStringLiterals returns every string literal node in the unit's
// scope. Rules that inspect literal contents use this so that matching
// stays confined to actual strings, never comments or identifiers.
func FindStringLiterals(unit *testunit.Unit) []sitter.Node {
	return capturedNodes(stringLiteralPattern, unit.Body, unit.Source, "string")
}

// FindCompositeLiterals returns composite literals of the qualified
// type pkg.Type, e.g. http.Client{...}.
func FindCompositeLiterals(unit *testunit.Unit, pkg, typeName string) []sitter.Node {
	pattern := &query.Pattern{
		Root: query.NodePattern{
			Kind: "composite_literal",
			Fields: []query.FieldPattern{
				{Name: "type", Value: query.NodePattern{
					// The grammar types "http.Client{}" as a qualified_type,
					// not a selector_expression.
					Kind: "qualified_type",
					Fields: []query.FieldPattern{
						{Name: "package", Value: query.NodePattern{Kind: "package_identifier", Capture: "package"}},
						{Name: "name", Value: query.NodePattern{Kind: "type_identifier", Capture: "type"}},
					},
				}},
			},
			Capture: "literal",
		},
		Predicates: []query.Predicate{
			query.Eq("package", pkg),
			query.Eq("type", typeName),
		},
	}

	return capturedNodes(pattern, unit.Body, unit.Source, "literal")
}

func capturedNodes(pattern *query.Pattern, root sitter.Node, source []byte, capture string) []sitter.Node {
	matches := query.Default().Matches(pattern, root, source)

	nodes := make([]sitter.Node, 0, len(matches))

	for _, match := range matches {
		if n, ok := match.Node(capture); ok {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// At stamps a finding with the unit identity and the node's location.
func At(unit *testunit.Unit, node sitter.Node, finding issue.Finding) issue.Finding {
	finding.File = unit.FilePath
	finding.TestName = unit.Name
	finding.Line = syntax.StartLine(node)
	finding.CodeSnippet = syntax.Snippet(node, unit.Source)

	return finding
}

// AtUnit stamps a finding that applies to the unit as a whole rather
// than one node; the line is the unit's start line and the snippet is
// supplied by the rule.
func AtUnit(unit *testunit.Unit, finding issue.Finding) issue.Finding {
	finding.File = unit.FilePath
	finding.TestName = unit.Name
	finding.Line = unit.StartLine

	return finding
}
