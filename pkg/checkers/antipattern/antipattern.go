// Package antipattern detects structural testing anti-patterns:
// reflection into unexported state, assertion overload, environment
// mutation without cleanup, global state writes, and tests that assert
// nothing.
package antipattern

import (
	"fmt"
	"strings"

	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/testunit"
)

// Category is the report category for all findings of this module.
const Category = "Anti-Patterns"

// Limits holds the tunable thresholds of this module.
type Limits struct {
	// MaxAssertions is the largest assertion count that passes without
	// a finding.
	MaxAssertions int `mapstructure:"max_assertions" yaml:"max_assertions"`
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{MaxAssertions: 5}
}

// Checker implements the anti-pattern rules.
type Checker struct {
	limits Limits
}

// New creates a Checker with the given limits.
func New(limits Limits) *Checker {
	return &Checker{limits: limits}
}

// Default creates a Checker with DefaultLimits.
func Default() *Checker {
	return New(DefaultLimits())
}

// Name implements checkers.Checker.
func (c *Checker) Name() string { return "check-anti-patterns" }

// Flag implements checkers.Checker.
func (c *Checker) Flag() string { return "anti-patterns" }

// Description implements checkers.Checker.
func (c *Checker) Description() string {
	return "reflection, assertion overload, missing cleanup, global state, missing assertions"
}

// Analyze implements checkers.Checker.
func (c *Checker) Analyze(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	findings = append(findings, checkReflection(unit)...)
	findings = append(findings, c.checkAssertionCount(unit)...)
	findings = append(findings, checkMissingCleanup(unit)...)
	findings = append(findings, checkGlobalState(unit)...)
	findings = append(findings, checkMissingAssertions(unit)...)

	return findings
}

const (
	reflectionMessage    = "Using reflection to access unexported fields couples test to implementation"
	reflectionSuggestion = "Test the public API only. If internal behavior needs testing, consider extracting it to a separate exported function or using test-only accessors"
)

// qualifiedReflectionCalls are the package-qualified reflection entry
// points. unsafe.Pointer parses as a call expression, so the same rule
// covers it.
var qualifiedReflectionCalls = [][2]string{
	{"reflect", "ValueOf"},
	{"reflect", "TypeOf"},
	{"unsafe", "Pointer"},
}

// bareReflectionMethods are reflection methods reported regardless of
// the receiver they are called on.
var bareReflectionMethods = []string{"Elem", "FieldByName"}

func checkReflection(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	for _, call := range qualifiedReflectionCalls {
		for _, site := range checkers.FindCalls(unit, call[0], call[1]) {
			findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
				Message:    reflectionMessage,
				Category:   Category,
				Severity:   issue.SeverityHigh,
				PatternID:  site.Package + "." + site.Method,
				Suggestion: reflectionSuggestion,
			}))
		}
	}

	for _, method := range bareReflectionMethods {
		for _, site := range checkers.FindCalls(unit, ".*", method) {
			findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
				Message:    reflectionMessage,
				Category:   Category,
				Severity:   issue.SeverityHigh,
				PatternID:  "." + site.Method,
				Suggestion: reflectionSuggestion,
			}))
		}
	}

	return findings
}

func (c *Checker) checkAssertionCount(unit *testunit.Unit) []issue.Finding {
	count := checkers.CountAssertions(unit)
	if count <= c.limits.MaxAssertions {
		return nil
	}

	return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
		Message: fmt.Sprintf("Test has %d assertions (>%d suggests testing multiple behaviors)",
			count, c.limits.MaxAssertions),
		Category:    Category,
		Severity:    issue.SeverityMedium,
		PatternID:   "assert.|require.",
		CodeSnippet: "Multiple assertions in single test",
		Suggestion:  "Split into multiple focused tests with one assertion each, or group related assertions by behavior. Multiple assertions make failures harder to diagnose",
		Metrics:     map[string]int{"assertion_count": count},
	})}
}

func checkMissingCleanup(unit *testunit.Unit) []issue.Finding {
	setenvSites := checkers.FindCalls(unit, "os", "Setenv")
	if len(setenvSites) == 0 {
		return nil
	}

	// t.Setenv registers its own cleanup.
	if checkers.HasCall(unit, "t", "Setenv") {
		return nil
	}

	if checkers.HasDeferredCall(unit, "Unsetenv|Setenv|Cleanup") {
		return nil
	}

	findings := make([]issue.Finding, 0, len(setenvSites))

	for _, site := range setenvSites {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    "os.Setenv without cleanup can pollute test environment",
			Category:   Category,
			Severity:   issue.SeverityMedium,
			PatternID:  "os.Setenv",
			Suggestion: `Use t.Setenv() (Go 1.17+) which automatically cleans up, or add: defer os.Unsetenv("VAR_NAME")`,
		}))
	}

	return findings
}

// globalAssignmentPattern matches assignments whose target identifier
// has the ALL_CAPS shape of a package-level constant-style variable.
var globalAssignmentPattern = &query.Pattern{
	Root: query.NodePattern{
		Kind: "assignment_statement",
		Fields: []query.FieldPattern{
			{Name: "left", Value: query.NodePattern{
				Kind:     "expression_list",
				Children: []query.NodePattern{{Kind: "identifier", Capture: "target"}},
			}},
		},
		Capture: "assignment",
	},
	Predicates: []query.Predicate{query.Match("target", `^[A-Z][A-Z_]+$`)},
}

func checkGlobalState(unit *testunit.Unit) []issue.Finding {
	matches := query.Default().Matches(globalAssignmentPattern, unit.Body, unit.Source)

	// One finding per unit, at the first offending assignment.
	for _, match := range matches {
		assignment, ok := match.Node("assignment")
		if !ok {
			continue
		}

		return []issue.Finding{checkers.At(unit, assignment, issue.Finding{
			Message:    "Modifying package-level variable can cause test interdependencies",
			Category:   Category,
			Severity:   issue.SeverityMedium,
			PatternID:  "global state",
			Suggestion: "Use test-scoped variables or pass state through function parameters. If global state is necessary, ensure proper cleanup with defer or t.Cleanup()",
		})}
	}

	return nil
}

func checkMissingAssertions(unit *testunit.Unit) []issue.Finding {
	if strings.HasPrefix(unit.Name, "Benchmark") {
		return nil
	}

	if checkers.CountAssertions(unit) > 0 {
		return nil
	}

	// An explicit skip marks the test as intentionally incomplete.
	if checkers.HasCall(unit, "t", "Skip.*") {
		return nil
	}

	return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
		Message:     "Test function has no assertions (may be incomplete or not actually testing)",
		Category:    Category,
		Severity:    issue.SeverityMedium,
		PatternID:   "no assertions",
		CodeSnippet: "func " + unit.Name,
		Suggestion:  "Add assertions to verify expected behavior, or add t.Skip() if the test is intentionally incomplete",
	})}
}
