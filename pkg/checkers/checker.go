// Package checkers defines the checker contract and the scoped query
// helpers shared by the built-in checker modules. Every checker owns a set
// of rule functions that each run structural queries against one test unit's
// body subtree and emit findings; rules only read the tree, never
// mutate it.
package checkers

import (
	"errors"
	"fmt"

	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/testunit"
)

// ErrUnknownChecker indicates a requested checker flag is not registered.
var ErrUnknownChecker = errors.New("unknown checker")

// Checker is the common interface for all checker modules.
type Checker interface {
	// Name is the report script name, e.g. "check-anti-patterns".
	Name() string

	// Flag is the CLI selection id, e.g. "anti-patterns".
	Flag() string

	// Description is a one-line human summary.
	Description() string

	// Analyze runs every rule of the module against one test unit and
	// returns the raw findings, unsorted and uncapped.
	Analyze(unit *testunit.Unit) []issue.Finding
}

// Registry holds registered checkers in registration order.
type Registry struct {
	order  []Checker
	byFlag map[string]Checker
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byFlag: make(map[string]Checker)}
}

// Register adds a checker. Re-registering a flag replaces the previous
// entry in place.
func (r *Registry) Register(checker Checker) {
	if _, exists := r.byFlag[checker.Flag()]; !exists {
		r.order = append(r.order, checker)
	} else {
		for i, existing := range r.order {
			if existing.Flag() == checker.Flag() {
				r.order[i] = checker

				break
			}
		}
	}

	r.byFlag[checker.Flag()] = checker
}

// Lookup resolves a checker by flag.
func (r *Registry) Lookup(flag string) (Checker, error) {
	checker, ok := r.byFlag[flag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChecker, flag)
	}

	return checker, nil
}

// All returns every registered checker in registration order.
func (r *Registry) All() []Checker {
	return r.order
}

// Flags returns the registered flags in registration order.
func (r *Registry) Flags() []string {
	flags := make([]string, 0, len(r.order))
	for _, checker := range r.order {
		flags = append(flags, checker.Flag())
	}

	return flags
}
