// Package extdeps detects tests reaching outside the process: real
// clocks, databases, HTTP clients and servers, and the filesystem.
package extdeps

import (
	"regexp"

	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/syntax"
	"github.com/probelab/testprobe/pkg/testunit"
)

// Category is the report category for all findings of this module.
const Category = "External Dependency"

// Checker implements the external-dependency rules. The module has no
// numeric thresholds; every rule is a presence check.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// Name implements checkers.Checker.
func (c *Checker) Name() string { return "check-external-deps" }

// Flag implements checkers.Checker.
func (c *Checker) Flag() string { return "external-deps" }

// Description implements checkers.Checker.
func (c *Checker) Description() string {
	return "sleeps, database connections, HTTP calls, web servers, file I/O"
}

// Analyze implements checkers.Checker.
func (c *Checker) Analyze(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	findings = append(findings, checkTimeSleep(unit)...)
	findings = append(findings, checkDatabase(unit)...)
	findings = append(findings, checkHTTPCalls(unit)...)
	findings = append(findings, checkWebServers(unit)...)
	findings = append(findings, checkFileIO(unit)...)

	return findings
}

func checkTimeSleep(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	for _, site := range checkers.FindCalls(unit, "time", "Sleep") {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    "time.Sleep makes test slow and timing-dependent (flaky)",
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "time.Sleep",
			Suggestion: "Use channels, sync.WaitGroup, or require.Eventually for deterministic synchronization instead of sleeping",
		}))
	}

	return findings
}

const (
	databaseMessage    = "Real database connection in test makes it slow and environment-dependent"
	databaseSuggestion = "Use a mock database, sqlmock, or test containers for integration tests. Unit tests should mock the database layer"
)

// connectionStringShape matches database DSN schemes inside string
// literals. The scan runs over literal nodes only, so a URL in a
// comment never matches.
var connectionStringShape = regexp.MustCompile(`(postgres|mysql)://`)

func checkDatabase(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	for _, site := range checkers.FindCalls(unit, "sql", "Open") {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    databaseMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "sql.Open",
			Suggestion: databaseSuggestion,
		}))
	}

	for _, site := range checkers.FindCalls(unit, "gorm", "") {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    databaseMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "gorm." + site.Method,
			Suggestion: databaseSuggestion,
		}))
	}

	for _, literal := range checkers.FindStringLiterals(unit) {
		if !connectionStringShape.MatchString(syntax.NodeText(literal, unit.Source)) {
			continue
		}

		findings = append(findings, checkers.At(unit, literal, issue.Finding{
			Message:    databaseMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "postgres://|mysql://",
			Suggestion: databaseSuggestion,
		}))
	}

	return findings
}

const (
	httpMessage    = "Real HTTP call to external server makes test slow, flaky, and network-dependent"
	httpSuggestion = "Use httptest.Server to create a test HTTP server, or inject a mock HTTP client"
)

// httpClientMethods are the net/http entry points treated as real
// network calls.
const httpClientMethods = "Get|Post|Put|Delete|Do|Head|NewRequest"

func checkHTTPCalls(unit *testunit.Unit) []issue.Finding {
	// httptest servers are the sanctioned way to exercise HTTP paths;
	// their presence suppresses the whole rule for this unit.
	if checkers.HasCall(unit, "httptest", "") {
		return nil
	}

	var findings []issue.Finding

	for _, site := range checkers.FindCalls(unit, "http", httpClientMethods) {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    httpMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "http." + site.Method,
			Suggestion: httpSuggestion,
		}))
	}

	for _, literal := range checkers.FindCompositeLiterals(unit, "http", "Client") {
		findings = append(findings, checkers.At(unit, literal, issue.Finding{
			Message:    httpMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "http.Client",
			Suggestion: httpSuggestion,
		}))
	}

	return findings
}

const (
	serverMessage    = "Starting real web server in test creates port conflicts and slow tests"
	serverSuggestion = "Use httptest.Server which automatically picks an available port and shuts down cleanly"
)

func checkWebServers(unit *testunit.Unit) []issue.Finding {
	var findings []issue.Finding

	// ListenAndServe on any receiver: http.ListenAndServe or a server
	// value's method.
	for _, site := range checkers.FindCalls(unit, ".*", "ListenAndServe") {
		findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
			Message:    serverMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "ListenAndServe",
			Suggestion: serverSuggestion,
		}))
	}

	for _, literal := range checkers.FindCompositeLiterals(unit, "http", "Server") {
		findings = append(findings, checkers.At(unit, literal, issue.Finding{
			Message:    serverMessage,
			Category:   Category,
			Severity:   issue.SeverityCritical,
			PatternID:  "http.Server",
			Suggestion: serverSuggestion,
		}))
	}

	return findings
}

// fileIOCalls are the filesystem entry points reported when a unit does
// not confine itself to t.TempDir().
var fileIOCalls = [][2]string{
	{"os", "Create"},
	{"os", "Open"},
	{"os", "ReadFile"},
	{"ioutil", "ReadFile"},
	{"os", "WriteFile"},
	{"ioutil", "WriteFile"},
}

func checkFileIO(unit *testunit.Unit) []issue.Finding {
	// t.TempDir gives per-test isolation with automatic cleanup.
	if checkers.HasCall(unit, "t", "TempDir") {
		return nil
	}

	var findings []issue.Finding

	for _, call := range fileIOCalls {
		for _, site := range checkers.FindCalls(unit, call[0], call[1]) {
			findings = append(findings, checkers.At(unit, site.Node, issue.Finding{
				Message:    "File I/O in test may cause issues with parallel execution and cleanup",
				Category:   Category,
				Severity:   issue.SeverityHigh,
				PatternID:  site.Package + "." + site.Method,
				Suggestion: "Use t.TempDir() to create temporary directories that are automatically cleaned up after the test",
			}))
		}
	}

	return findings
}
