// Package complexity flags tests that are hard to read or maintain:
// overlong functions, over-mocking, branching test logic, and generic
// test names.
package complexity

import (
	"fmt"
	"regexp"

	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/testunit"
)

// Category is the report category for all findings of this module.
const Category = "Test Complexity"

// PatternID tags every finding of this module; the aggregator does not
// cap it.
const PatternID = "complexity"

// Limits holds the tunable thresholds of this module.
type Limits struct {
	// MaxFunctionLines is the largest body line span that passes.
	MaxFunctionLines int `mapstructure:"max_function_lines" yaml:"max_function_lines"`

	// MaxMocks is the largest mock-construction count that passes.
	MaxMocks int `mapstructure:"max_mocks" yaml:"max_mocks"`

	// MaxControlFlow is the largest control-flow count that passes.
	MaxControlFlow int `mapstructure:"max_control_flow" yaml:"max_control_flow"`
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxFunctionLines: 100,
		MaxMocks:         4,
		MaxControlFlow:   3,
	}
}

// Checker implements the complexity rules.
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
func (c *Checker) Name() string { return "check-complexity" }

// Flag implements checkers.Checker.
func (c *Checker) Flag() string { return "complexity" }

// Description implements checkers.Checker.
func (c *Checker) Description() string {
	return "long tests, excessive mocks, complex logic, generic test names"
}

// Analyze implements checkers.Checker.
func (c *Checker) Analyze(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	findings = append(findings, c.checkLongFunction(unit)...)
	findings = append(findings, c.checkExcessiveMocks(unit)...)
	findings = append(findings, c.checkComplexLogic(unit)...)
	findings = append(findings, checkGenericName(unit)...)

	return findings
}

func (c *Checker) checkLongFunction(unit *testunit.Unit) []issue.Finding {
	lineCount := unit.LineCount()
	if lineCount <= c.limits.MaxFunctionLines {
		return nil
	}

	return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
		Message: fmt.Sprintf("Test function is %d lines (exceeds %d-line guideline)",
			lineCount, c.limits.MaxFunctionLines),
		Category:    Category,
		Severity:    issue.SeverityHigh,
		PatternID:   PatternID,
		CodeSnippet: fmt.Sprintf("func %s(...) { ... }", unit.Name),
		Suggestion:  "Split into multiple focused tests, extract setup to helpers, or use table-driven tests to reduce duplication",
		Metrics: map[string]int{
			"total_lines":             lineCount,
			"mock_count":              countMocks(unit),
			"control_flow_statements": checkers.CountControlFlow(unit),
		},
	})}
}

var (
	// mockLiteralPattern matches MockXxx{} and &MockXxx{} literals.
	mockLiteralPattern = &query.Pattern{
		Root: query.NodePattern{
			Kind: "composite_literal",
			Fields: []query.FieldPattern{
				{Name: "type", Value: query.NodePattern{
					AnyOf: []query.NodePattern{
						{Kind: "type_identifier", Capture: "type"},
						{Kind: "pointer_type", Children: []query.NodePattern{{Kind: "type_identifier", Capture: "type"}}},
					},
				}},
			},
			Capture: "literal",
		},
		Predicates: []query.Predicate{query.Match("type", "^Mock")},
	}

	// mockConstructorPattern matches NewMockXxx(...) and newMockXxx(...).
	mockConstructorPattern = &query.Pattern{
		Root: query.NodePattern{
			Kind: "call_expression",
			Fields: []query.FieldPattern{
				{Name: "function", Value: query.NodePattern{Kind: "identifier", Capture: "function"}},
			},
			Capture: "call",
		},
		Predicates: []query.Predicate{query.Match("function", "^(new|New)Mock")},
	}

	// mockMethodPattern matches pkg.NewMockXxx(...) constructor calls.
	mockMethodPattern = &query.Pattern{
		Root: query.NodePattern{
			Kind: "call_expression",
			Fields: []query.FieldPattern{
				{Name: "function", Value: query.NodePattern{
					Kind: "selector_expression",
					Fields: []query.FieldPattern{
						{Name: "field", Value: query.NodePattern{Kind: "field_identifier", Capture: "method"}},
					},
				}},
			},
			Capture: "call",
		},
		Predicates: []query.Predicate{query.Match("method", "^NewMock")},
	}
)

// countMocks counts mock constructions in scope: Mock-typed composite
// literals plus NewMock-style constructor calls, bare or qualified.
func countMocks(unit *testunit.Unit) int {
	engine := query.Default()

	return engine.Count(mockLiteralPattern, unit.Body, unit.Source) +
		engine.Count(mockConstructorPattern, unit.Body, unit.Source) +
		engine.Count(mockMethodPattern, unit.Body, unit.Source)
}

func (c *Checker) checkExcessiveMocks(unit *testunit.Unit) []issue.Finding {
	mockCount := countMocks(unit)
	if mockCount <= c.limits.MaxMocks {
		return nil
	}

	return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
		Message: fmt.Sprintf("Test has %d mock objects (>%d suggests over-mocking)",
			mockCount, c.limits.MaxMocks),
		Category:    Category,
		Severity:    issue.SeverityHigh,
		PatternID:   PatternID,
		CodeSnippet: "Multiple mock objects created",
		Suggestion:  "Consider using real objects when they're simple, or inject fewer dependencies. Too many mocks couples tests to implementation details",
		Metrics:     map[string]int{"mock_count": mockCount},
	})}
}

func (c *Checker) checkComplexLogic(unit *testunit.Unit) []issue.Finding {
	controlFlow := checkers.CountControlFlow(unit)
	if controlFlow <= c.limits.MaxControlFlow {
		return nil
	}

	return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
		Message: fmt.Sprintf("Test has %d control flow statements (>%d indicates complex logic)",
			controlFlow, c.limits.MaxControlFlow),
		Category:    Category,
		Severity:    issue.SeverityMedium,
		PatternID:   PatternID,
		CodeSnippet: "Multiple for/if/switch statements",
		Suggestion:  "Tests should be simple and linear. Consider using table-driven tests or splitting into multiple focused tests",
		Metrics:     map[string]int{"control_flow_statements": controlFlow},
	})}
}

// genericNameShapes are name shapes that say nothing about behavior.
// The first matching shape wins; a unit is reported at most once.
var genericNameShapes = []*regexp.Regexp{
	regexp.MustCompile(`^Test[A-Z]?$`),
	regexp.MustCompile(`^Test[0-9]+$`),
	regexp.MustCompile(`^TestCase[0-9]*$`),
	regexp.MustCompile(`^TestFunc[0-9]*$`),
	regexp.MustCompile(`^Test(Foo|Bar)$`),
}

func checkGenericName(unit *testunit.Unit) []issue.Finding {
	for _, shape := range genericNameShapes {
		if !shape.MatchString(unit.Name) {
			continue
		}

		return []issue.Finding{checkers.AtUnit(unit, issue.Finding{
			Message:     fmt.Sprintf("Test name '%s' is too generic and doesn't describe behavior", unit.Name),
			Category:    Category,
			Severity:    issue.SeverityMedium,
			PatternID:   PatternID,
			CodeSnippet: unit.Name,
			Suggestion:  "Use descriptive names that explain what's being tested, e.g., TestUserCreationWithInvalidEmail, TestHandlerReturns404ForMissingResource",
		})}
	}

	return nil
}
