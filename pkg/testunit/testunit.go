// Package testunit discovers test functions in a parsed Go file and
// binds each to its body subtree, the scope boundary for all checker
// queries.
package testunit

import (
	"regexp"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/syntax"
)

// DefaultPrefix is the identifier prefix that marks a function
// declaration as a test.
const DefaultPrefix = "Test"

// Unit is one discovered test function and its body scope, the atomic
// unit of analysis. It references (does not copy) the source bytes and
// body node of its parent tree; its lifetime is tied to that tree.
type Unit struct {
	Name      string
	StartLine int
	EndLine   int
	Body      sitter.Node
	Source    []byte
	FilePath  string
}

// LineCount returns the body line span used by length checks.
func (u *Unit) LineCount() int {
	return u.EndLine - u.StartLine
}

// Option configures extraction.
type Option func(*options)

type options struct {
	prefix string
	engine *query.Engine
}

// WithPrefix overrides the test-naming prefix (default "Test").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEngine overrides the query engine used for extraction.
func WithEngine(engine *query.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// Extract returns every test function declared in the tree, in document
// order. Declarations whose identifier does not match the prefix are
// silently skipped, as are declarations without a resolvable body.
// Zero test functions is a valid result, not an error.
func Extract(tree *syntax.Tree, filePath string, opts ...Option) []*Unit {
	o := options{prefix: DefaultPrefix, engine: query.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	// Name and body are bound from the same match record, so a file
	// mixing test and non-test declarations cannot mispair them.
	pattern := &query.Pattern{
		Root: query.NodePattern{
			Kind: "function_declaration",
			Fields: []query.FieldPattern{
				{Name: "name", Value: query.NodePattern{Kind: "identifier", Capture: "name"}},
				{Name: "body", Value: query.NodePattern{Kind: "block", Capture: "body"}},
			},
		},
		Predicates: []query.Predicate{
			// The prefix is configuration, not a regexp; quote it so
			// metacharacters cannot break or widen the match.
			query.Match("name", "^"+regexp.QuoteMeta(o.prefix)),
		},
	}

	source := tree.Source()
	matches := o.engine.Matches(pattern, tree.Root(), source)

	units := make([]*Unit, 0, len(matches))

	for _, match := range matches {
		nameNode, okName := match.Node("name")
		bodyNode, okBody := match.Node("body")

		if !okName || !okBody {
			continue
		}

		units = append(units, &Unit{
			Name:      syntax.NodeText(nameNode, source),
			StartLine: syntax.StartLine(bodyNode),
			EndLine:   syntax.EndLine(bodyNode),
			Body:      bodyNode,
			Source:    source,
			FilePath:  filePath,
		})
	}

	return units
}
