// Package query implements the structural query engine shared by all
// checkers. A Pattern is a typed, declarative description of a subtree
// shape — node kinds, field constraints, named captures — compiled to a
// tree-sitter query and executed against a scope root. Matching is
// purely structural: text inside comments or string literals never
// matches a call or identifier pattern, because the engine only matches
// grammar node kinds. Textual predicates are evaluated in Go after the
// structural match, bound per match record rather than zipped across
// capture arrays.
package query

import (
	"regexp"
	"strings"
)

// NodePattern describes the constraint for a single node position in a
// pattern tree. Exactly one of Kind or AnyOf should be set; leaving both
// empty matches any named node (the tree-sitter wildcard).
type NodePattern struct {
	// Kind is the grammar node kind to match, e.g. "call_expression".
	Kind string

	// AnyOf matches if any of the alternatives matches at this position.
	AnyOf []NodePattern

	// Fields constrain named fields of the node, e.g. function:, name:.
	Fields []FieldPattern

	// Children constrain anonymous (positional) named children.
	Children []NodePattern

	// Capture names the matched node in the result record.
	Capture string
}

// FieldPattern constrains one named field of a node.
type FieldPattern struct {
	Name     string
	Value    NodePattern
	Optional bool
}

// Pattern is a reusable, stateless structural query: a root node
// pattern plus zero or more predicates over its captures.
type Pattern struct {
	Root       NodePattern
	Predicates []Predicate
}

// predicateOp enumerates the supported textual predicate operations.
type predicateOp int

const (
	opEq predicateOp = iota
	opMatch
)

// Predicate filters structural matches by the text of a named capture.
// A predicate over an absent capture fails the match.
type Predicate struct {
	capture string
	op      predicateOp
	value   string
	re      *regexp.Regexp
}

// Eq returns a predicate requiring the capture text to equal value
// exactly (#eq? semantics).
func Eq(capture, value string) Predicate {
	return Predicate{capture: capture, op: opEq, value: value}
}

// Match returns a predicate requiring the capture text to match the
// regular expression (#match? semantics). The expression must be a
// valid Go regexp; patterns are program constants, so a bad expression
// is a programming error and panics at construction.
func Match(capture, expr string) Predicate {
	return Predicate{capture: capture, op: opMatch, value: expr, re: regexp.MustCompile(expr)}
}

// eval reports whether the predicate holds for the given capture texts.
func (p Predicate) eval(texts map[string]string) bool {
	text, ok := texts[p.capture]
	if !ok {
		return false
	}

	switch p.op {
	case opEq:
		return text == p.value
	case opMatch:
		return p.re.MatchString(text)
	default:
		return false
	}
}

// Sexp renders the pattern's structural part as a tree-sitter
// S-expression. Predicates are intentionally not rendered; they are
// evaluated by the engine after structural matching.
func (p *Pattern) Sexp() string {
	var sb strings.Builder

	writeNodePattern(&sb, p.Root)

	return sb.String()
}

func writeNodePattern(sb *strings.Builder, np NodePattern) {
	writeNodeBody(sb, np)
	writeCapture(sb, np.Capture)
}

// writeNodeBody renders the node shape without its capture. The quantifier
// of an optional field must sit between the node and the capture name
// ("(argument_list)? @args"), so capture emission is kept separate.
func writeNodeBody(sb *strings.Builder, np NodePattern) {
	switch {
	case len(np.AnyOf) > 0:
		sb.WriteByte('[')

		for i, alt := range np.AnyOf {
			if i > 0 {
				sb.WriteByte(' ')
			}

			writeNodePattern(sb, alt)
		}

		sb.WriteByte(']')
	case np.Kind == "":
		sb.WriteString("(_)")
	default:
		sb.WriteByte('(')
		sb.WriteString(np.Kind)

		for _, field := range np.Fields {
			sb.WriteByte(' ')
			sb.WriteString(field.Name)
			sb.WriteString(": ")
			writeNodeBody(sb, field.Value)

			if field.Optional {
				sb.WriteByte('?')
			}

			writeCapture(sb, field.Value.Capture)
		}

		for _, child := range np.Children {
			sb.WriteByte(' ')
			writeNodePattern(sb, child)
		}

		sb.WriteByte(')')
	}
}

func writeCapture(sb *strings.Builder, capture string) {
	if capture != "" {
		sb.WriteString(" @")
		sb.WriteString(capture)
	}
}
