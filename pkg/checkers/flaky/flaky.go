// Package flaky detects nondeterminism sources: goroutines launched
// without synchronization, unseeded randomness, direct clock reads, and
// hardcoded timeout durations.
package flaky

import (
	"regexp"

	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/query"
	"github.com/probelab/testprobe/pkg/syntax"
	"github.com/probelab/testprobe/pkg/testunit"
)

// Category is the report category for all findings of this module.
const Category = "Flaky Tests"

// Checker implements the flakiness rules. All rules are presence
// checks; the module carries no numeric thresholds.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// Name implements checkers.Checker.
func (c *Checker) Name() string { return "check-flaky-patterns" }

// Flag implements checkers.Checker.
func (c *Checker) Flag() string { return "flaky-patterns" }

// Description implements checkers.Checker.
func (c *Checker) Description() string {
	return "unsynchronized goroutines, unseeded randomness, clock reads, hardcoded timeouts"
}

// Analyze implements checkers.Checker.
func (c *Checker) Analyze(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	findings = append(findings, checkUnsynchronizedGoroutines(unit)...)
	findings = append(findings, checkUnseededRandom(unit)...)
	findings = append(findings, checkClockReads(unit)...)
	findings = append(findings, checkHardcodedTimeouts(unit)...)

	return findings
}

// waitGroupTypePattern matches a sync.WaitGroup type reference, as in
// "var wg sync.WaitGroup".
var waitGroupTypePattern = &query.Pattern{
	Root: query.NodePattern{
		Kind: "qualified_type",
		Fields: []query.FieldPattern{
			{Name: "package", Value: query.NodePattern{Kind: "package_identifier", Capture: "package"}},
			{Name: "name", Value: query.NodePattern{Kind: "type_identifier", Capture: "name"}},
		},
		Capture: "type",
	},
	Predicates: []query.Predicate{
		query.Eq("package", "sync"),
		query.Eq("name", "WaitGroup"),
	},
}

func hasWaitGroup(unit *testunit.Unit) bool {
	if query.Default().Exists(waitGroupTypePattern, unit.Body, unit.Source) {
		return true
	}

	return checkers.HasCall(unit, ".*", "Wait|Add|Done")
}

var channelUsagePattern = &query.Pattern{
	Root: query.NodePattern{
		AnyOf: []query.NodePattern{
			{
				Kind: "call_expression",
				Fields: []query.FieldPattern{
					{Name: "function", Value: query.NodePattern{Kind: "identifier", Capture: "function"}},
					{Name: "arguments", Value: query.NodePattern{
						Kind:     "argument_list",
						Children: []query.NodePattern{{Kind: "channel_type"}},
					}},
				},
				Capture: "make_chan",
			},
			{Kind: "send_statement", Capture: "send"},
			{Kind: "receive_statement", Capture: "receive"},
		},
	},
}

// receivePattern matches <-ch receive expressions outside select
// statements, which the grammar parses as unary expressions.
var receivePattern = &query.Pattern{
	Root: query.NodePattern{
		Kind: "unary_expression",
		Fields: []query.FieldPattern{
			{Name: "operand", Value: query.NodePattern{}},
		},
		Capture: "unary",
	},
	Predicates: []query.Predicate{query.Match("unary", `^<-`)},
}

func hasChannelUsage(unit *testunit.Unit) bool {
	engine := query.Default()

	for _, match := range engine.Matches(channelUsagePattern, unit.Body, unit.Source) {
		if match.Has("send") || match.Has("receive") {
			return true
		}

		if match.Text("function", unit.Source) == "make" {
			return true
		}
	}

	return engine.Exists(receivePattern, unit.Body, unit.Source)
}

func checkUnsynchronizedGoroutines(unit *testunit.Unit) []issue.Finding {
	goroutines := checkers.FindGoroutines(unit)
	if len(goroutines) == 0 {
		return nil
	}

	if hasWaitGroup(unit) || hasChannelUsage(unit) {
		return nil
	}

	findings := make([]issue.Finding, 0, len(goroutines))

	for _, launch := range goroutines {
		findings = append(findings, checkers.At(unit, launch, issue.Finding{
			Message:    "Goroutine spawned without synchronization (WaitGroup/channels)",
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "go func(",
			Suggestion: "Use sync.WaitGroup to wait for goroutine completion, or use channels to receive results. Without synchronization, the test may finish before the goroutine completes",
		}))
	}

	return findings
}

// randValueMethods are the rand entry points that produce values; any
// of them without a seeding call in the same scope is reported.
const randValueMethods = "Int|Float|Intn|Float32|Float64|Int31|Int63"

// randSeedMethods establish deterministic randomness when present.
const randSeedMethods = "Seed|NewSource|New"

func checkUnseededRandom(unit *testunit.Unit) []issue.Finding {
	sites := checkers.FindCalls(unit, "rand", randValueMethods)
	if len(sites) == 0 {
		return nil
	}

	if checkers.HasCall(unit, "rand", randSeedMethods) {
		return nil
	}

	findings := make([]issue.Finding, 0, len(sites))

	for _, site := range sites {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    "Using rand without deterministic seed causes non-reproducible test failures",
			Category:   Category,
			Severity:   issue.SeverityHigh,
			PatternID:  "rand." + site.Method,
			Suggestion: "Use rand.New(rand.NewSource(1)) with a fixed seed for reproducible random data in tests",
		}))
	}

	return findings
}

func checkClockReads(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	for _, site := range checkers.FindCalls(unit, "time", "Now") {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    "Using time.Now() without mocking makes test time-dependent",
			Category:   Category,
			Severity:   issue.SeverityHigh,
			PatternID:  "time.Now",
			Suggestion: "Inject a clock interface or use a fixed time in tests. Consider using a library like github.com/benbjohnson/clock for testable time",
		}))
	}

	return findings
}

var (
	// eventuallyShape marks polling assertions that legitimately carry
	// a timeout.
	eventuallyShape = regexp.MustCompile(`(require|assert)\.Eventually`)

	// numericDurationShape matches literal durations like
	// "100 * time.Millisecond".
	numericDurationShape = regexp.MustCompile(`\d+\s*\*\s*time\.(Millisecond|Second|Minute)`)
)

// timeoutCalls are the call sites inspected for hardcoded durations.
var timeoutCalls = [][2]string{
	{"context", "WithTimeout"},
	{"time", "After"},
}

func checkHardcodedTimeouts(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	for _, call := range timeoutCalls {
		for _, site := range checkers.FindCalls(unit, call[0], call[1]) {
			text := syntax.NodeText(site.Node, unit.Source)

			if eventuallyShape.MatchString(text) {
				continue
			}

			if !numericDurationShape.MatchString(text) {
				continue
			}

			findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
				Message:    "Hardcoded timeout duration may be too short on slow CI machines",
				Category:   Category,
				Severity:   issue.SeverityHigh,
				PatternID:  site.Package + "." + site.Method,
				Suggestion: "Use generous timeouts (5-10 seconds) or environment-configurable timeouts. Tests should fail on logic errors, not slow machines",
			}))
		}
	}

	return findings
}
