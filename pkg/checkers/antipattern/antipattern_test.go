package antipattern_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/testprobe/pkg/checkers/antipattern"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/syntax"
	"github.com/probelab/testprobe/pkg/testunit"
)

func extractUnit(t *testing.T, source string) *testunit.Unit {
	t.Helper()

	tree, err := syntax.Parse(context.Background(), []byte(source))
	require.NoError(t, err)

	t.Cleanup(tree.Close)

	units := testunit.Extract(tree, "sample_test.go")
	require.Len(t, units, 1)

	return units[0]
}

func analyze(t *testing.T, source string) []issue.Finding {
	t.Helper()

	return antipattern.Default().Analyze(extractUnit(t, source))
}

func findingsByPattern(findings []issue.Finding, patternID string) []issue.Finding {
	var matched []issue.Finding

	for _, finding := range findings {
		if finding.PatternID == patternID {
			matched = append(matched, finding)
		}
	}

	return matched
}

// assertionSource builds a test function containing count assert calls.
func assertionSource(count int) string {
	var sb strings.Builder

	sb.WriteString("package sample\n\nfunc TestManyAssertions(t *testing.T) {\n")

	for range count {
		sb.WriteString("\tassert.Equal(t, 1, 1)\n")
	}

	sb.WriteString("}\n")

	return sb.String()
}

func TestAnalyze_AssertionCountBoundary(t *testing.T) {
	t.Parallel()

	atLimit := analyze(t, assertionSource(5))
	assert.Empty(t, findingsByPattern(atLimit, "assert.|require."))

	overLimit := analyze(t, assertionSource(6))
	found := findingsByPattern(overLimit, "assert.|require.")
	require.Len(t, found, 1)

	finding := found[0]
	assert.Equal(t, issue.SeverityMedium, finding.Severity)
	assert.Equal(t, "Anti-Patterns", finding.Category)
	assert.Equal(t, 6, finding.Metrics["assertion_count"])
}

func TestAnalyze_Reflection(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestReflects(t *testing.T) {
	v := reflect.ValueOf(target)
	elem := v.Elem()
	field := elem.FieldByName("secret")
	assert.NotNil(t, field)
}
`)

	assert.Len(t, findingsByPattern(findings, "reflect.ValueOf"), 1)
	assert.Len(t, findingsByPattern(findings, ".Elem"), 1)
	assert.Len(t, findingsByPattern(findings, ".FieldByName"), 1)

	for _, finding := range findings {
		if finding.Severity == issue.SeverityHigh {
			assert.Equal(t, "Anti-Patterns", finding.Category)
		}
	}
}

func TestAnalyze_SetenvWithoutCleanup(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestPollutesEnv(t *testing.T) {
	os.Setenv("MODE", "test")
	assert.Equal(t, "test", os.Getenv("MODE"))
}
`)

	require.Len(t, findingsByPattern(findings, "os.Setenv"), 1)
}

func TestAnalyze_SetenvSuppressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{
			name: "t.Setenv cleans up itself",
			source: `package sample

func TestScopedEnv(t *testing.T) {
	t.Setenv("MODE", "test")
	assert.Equal(t, "test", os.Getenv("MODE"))
}
`,
		},
		{
			name: "deferred unset",
			source: `package sample

func TestDeferredUnset(t *testing.T) {
	os.Setenv("MODE", "test")
	defer os.Unsetenv("MODE")
	assert.Equal(t, "test", os.Getenv("MODE"))
}
`,
		},
		{
			name: "deferred cleanup callback",
			source: `package sample

func TestCleanupCallback(t *testing.T) {
	os.Setenv("MODE", "test")
	defer t.Cleanup(reset)
	assert.Equal(t, "test", os.Getenv("MODE"))
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := analyze(t, tt.source)
			assert.Empty(t, findingsByPattern(findings, "os.Setenv"))
		})
	}
}

func TestAnalyze_GlobalStateReportedOncePerUnit(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestMutatesGlobals(t *testing.T) {
	CONFIG_PATH = "/tmp/a"
	RETRY_LIMIT = 10
	local := 1
	assert.Equal(t, 1, local)
}
`)

	found := findingsByPattern(findings, "global state")
	require.Len(t, found, 1)
	assert.Equal(t, issue.SeverityMedium, found[0].Severity)

	// The finding points at the first offending assignment.
	assert.Equal(t, 4, found[0].Line)
}

func TestAnalyze_LowercaseAssignmentIsNotGlobalState(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestLocalAssignment(t *testing.T) {
	counter = counter + 1
	assert.Equal(t, 1, counter)
}
`)

	assert.Empty(t, findingsByPattern(findings, "global state"))
}

func TestAnalyze_MissingAssertions(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestDoesNothing(t *testing.T) {
	value := compute()
	use(value)
}
`)

	found := findingsByPattern(findings, "no assertions")
	require.Len(t, found, 1)
	assert.Equal(t, "func TestDoesNothing", found[0].CodeSnippet)
}

func TestAnalyze_SkippedTestHasNoMissingAssertionFinding(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestNotReadyYet(t *testing.T) {
	t.Skip("pending fixture data")
}
`)

	assert.Empty(t, findingsByPattern(findings, "no assertions"))
}
