package syntax

import (
	"sync"

	golang "github.com/alexaandru/go-sitter-forest/go"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

var (
	goLanguageOnce sync.Once
	goLanguage     *sitter.Language
)

// Language returns the process-wide Go grammar handle. It is constructed
// once and never mutated afterwards, so it is safe to share across
// goroutines and query compilations.
func Language() *sitter.Language {
	goLanguageOnce.Do(func() {
		goLanguage = sitter.NewLanguage(golang.GetLanguage())
	})

	return goLanguage
}
