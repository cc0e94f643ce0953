// Package syntax adapts the tree-sitter Go grammar into the parse trees
// consumed by the query engine and checkers. A Tree owns the underlying
// CGo tree and the source bytes it was parsed from; all node values
// handed out are views into that tree and share its lifetime.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/probelab/testprobe/pkg/safeconv"
)

// Sentinel errors for parser operations.
var (
	errNoRootNode  = errors.New("syntax: no root node")
	errSyntaxError = errors.New("syntax: source contains syntax errors")
	errPoolType    = errors.New("syntax: pool returned unexpected type")
)

// snippetMaxLength is the maximum length of a single-line code snippet
// before truncation.
const snippetMaxLength = 100

// tsParserPool reuses tree-sitter parser instances across files. Parsers
// are not safe for concurrent use, but are cheap to pool.
var tsParserPool = sync.Pool{
	New: func() any {
		tsParser := sitter.NewParser()
		tsParser.SetLanguage(Language())

		return tsParser
	},
}

// Tree is an immutable parse result for one source file. It owns the
// tree-sitter tree and the source bytes; Close releases the CGo tree
// once analysis of the file completes.
type Tree struct {
	tree   *sitter.Tree
	source []byte
}

// Parse parses Go source bytes into a Tree. Sources that produce error
// nodes are rejected: a file that fails to parse contributes nothing to
// analysis, and half-parsed trees would yield misleading matches.
func Parse(ctx context.Context, content []byte) (*Tree, error) {
	tsParser, ok := tsParserPool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer tsParserPool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse: %w", err)
	}

	root := tree.RootNode()
	if root.IsNull() {
		tree.Close()

		return nil, errNoRootNode
	}

	if root.HasError() {
		tree.Close()

		return nil, errSyntaxError
	}

	return &Tree{tree: tree, source: content}, nil
}

// Root returns the root node of the tree.
func (t *Tree) Root() sitter.Node {
	return t.tree.RootNode()
}

// Source returns the raw source bytes the tree was parsed from.
func (t *Tree) Source() []byte {
	return t.source
}

// Close releases the underlying tree-sitter tree. Nodes obtained from
// this Tree must not be used afterwards.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// NodeText returns the source text covered by a node.
func NodeText(n sitter.Node, source []byte) string {
	return n.Content(source)
}

// StartLine returns the 1-based line number of a node's first byte.
func StartLine(n sitter.Node) int {
	return safeconv.MustUintToInt(n.StartPoint().Row) + 1
}

// EndLine returns the 1-based line number of a node's last byte.
func EndLine(n sitter.Node) int {
	return safeconv.MustUintToInt(n.EndPoint().Row) + 1
}

// Snippet returns a short single-line excerpt of a node's text for
// inclusion in findings. Multiline text is collapsed to its first line
// and long text is truncated, both marked with an ellipsis.
func Snippet(n sitter.Node, source []byte) string {
	snippet := NodeText(n, source)

	if idx := strings.IndexByte(snippet, '\n'); idx >= 0 {
		snippet = snippet[:idx] + "..."
	}

	if len(snippet) > snippetMaxLength {
		snippet = snippet[:snippetMaxLength] + "..."
	}

	return strings.TrimSpace(snippet)
}
