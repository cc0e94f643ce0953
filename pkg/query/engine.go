package query

import (
	"sort"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/probelab/testprobe/pkg/syntax"
)

// Result is one structural match: a binding of capture names to nodes,
// taken from a single match record. Captures are never paired across
// separate matches by array position.
type Result struct {
	captures map[string]sitter.Node
}

// Node returns the node bound to the named capture.
func (m Result) Node(name string) (sitter.Node, bool) {
	n, ok := m.captures[name]

	return n, ok
}

// Text returns the source text of the named capture, or "" when the
// capture is absent from this match.
func (m Result) Text(name string, source []byte) string {
	n, ok := m.captures[name]
	if !ok {
		return ""
	}

	return n.Content(source)
}

// Has reports whether the named capture is bound in this match.
func (m Result) Has(name string) bool {
	_, ok := m.captures[name]

	return ok
}

// Engine compiles patterns to tree-sitter queries and executes them.
// Compiled queries are cached by their rendered S-expression; patterns
// that fail to compile are remembered as broken and yield empty results
// on every subsequent use instead of raising.
type Engine struct {
	lang   *sitter.Language
	mu     sync.RWMutex
	cache  map[string]*sitter.Query
	broken map[string]struct{}
}

// NewEngine creates an Engine bound to the given grammar.
func NewEngine(lang *sitter.Language) *Engine {
	return &Engine{
		lang:   lang,
		cache:  make(map[string]*sitter.Query),
		broken: make(map[string]struct{}),
	}
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// Default returns the process-wide engine bound to the Go grammar.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(syntax.Language())
	})

	return defaultEngine
}

// Matches executes the pattern against the subtree rooted at root and
// returns every match in document order. Predicates are applied after
// structural matching and short-circuit failing matches. No match, a
// null root, and an uncompilable pattern all yield an empty result,
// never an error.
func (e *Engine) Matches(pattern *Pattern, root sitter.Node, source []byte) []Result {
	if root.IsNull() {
		return nil
	}

	compiled := e.compile(pattern.Sexp())
	if compiled == nil {
		return nil
	}

	cursor := sitter.NewQueryCursor()
	rawMatches := cursor.Matches(compiled, root, source)

	var results []Result

	for {
		raw := rawMatches.Next()
		if raw == nil {
			break
		}

		match := Result{captures: make(map[string]sitter.Node, len(raw.Captures))}

		for _, capture := range raw.Captures {
			if capture.Node.IsNull() {
				continue
			}

			name := compiled.CaptureNameForID(capture.Index)
			match.captures[name] = capture.Node
		}

		if e.predicatesHold(pattern, match, source) {
			results = append(results, match)
		}
	}

	// Cursor iteration order is not guaranteed to be document order for
	// alternation patterns; sort by the earliest captured byte.
	sort.SliceStable(results, func(i, j int) bool {
		return minStartByte(results[i]) < minStartByte(results[j])
	})

	return results
}

// Count returns the number of matches for the pattern within the scope.
func (e *Engine) Count(pattern *Pattern, root sitter.Node, source []byte) int {
	return len(e.Matches(pattern, root, source))
}

// Exists reports whether the pattern matches at least once in the scope.
func (e *Engine) Exists(pattern *Pattern, root sitter.Node, source []byte) bool {
	return len(e.Matches(pattern, root, source)) > 0
}

func (e *Engine) predicatesHold(pattern *Pattern, match Result, source []byte) bool {
	if len(pattern.Predicates) == 0 {
		return true
	}

	texts := make(map[string]string, len(match.captures))
	for name, n := range match.captures {
		texts[name] = n.Content(source)
	}

	for _, predicate := range pattern.Predicates {
		if !predicate.eval(texts) {
			return false
		}
	}

	return true
}

// compile returns the cached query for the S-expression, compiling on
// first use. Returns nil for expressions the grammar rejects.
func (e *Engine) compile(sexp string) *sitter.Query {
	e.mu.RLock()

	if compiled, ok := e.cache[sexp]; ok {
		e.mu.RUnlock()

		return compiled
	}

	if _, bad := e.broken[sexp]; bad {
		e.mu.RUnlock()

		return nil
	}

	e.mu.RUnlock()

	compiled, err := sitter.NewQuery(e.lang, []byte(sexp))

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.broken[sexp] = struct{}{}

		return nil
	}

	e.cache[sexp] = compiled

	return compiled
}

func minStartByte(m Result) uint {
	first := true

	var minByte uint

	for _, n := range m.captures {
		start := n.StartByte()
		if first || start < minByte {
			minByte = start
			first = false
		}
	}

	return minByte
}
