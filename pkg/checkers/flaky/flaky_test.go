package flaky_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/testprobe/pkg/checkers/flaky"
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

	return flaky.New().Analyze(extractUnit(t, source))
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

func TestAnalyze_UnsynchronizedGoroutines(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestFiresAndForgets(t *testing.T) {
	go writeResult()
	go func() {
		writeOther()
	}()
	assert.True(t, true)
}
`)

	found := findingsByPattern(findings, "go func(")
	require.Len(t, found, 2)
	assert.Equal(t, issue.SeverityCritical, found[0].Severity)
	assert.Equal(t, "Flaky Tests", found[0].Category)
}

func TestAnalyze_GoroutineSuppressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{
			name: "waitgroup",
			source: `package sample

func TestWaitsForWorkers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeResult()
	}()
	wg.Wait()
	assert.True(t, true)
}
`,
		},
		{
			name: "channel send and receive",
			source: `package sample

func TestCollectsResults(t *testing.T) {
	done := make(chan bool)
	go func() {
		done <- true
	}()
	<-done
	assert.True(t, true)
}
`,
		},
		{
			name: "receive only",
			source: `package sample

func TestReceivesResult(t *testing.T) {
	go produce()
	value := <-results
	assert.NotNil(t, value)
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := analyze(t, tt.source)
			assert.Empty(t, findingsByPattern(findings, "go func("))
		})
	}
}

func TestAnalyze_UnseededRandom(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestRandomInputs(t *testing.T) {
	value := rand.Intn(100)
	assert.Less(t, value, 100)
}
`)

	found := findingsByPattern(findings, "rand.Intn")
	require.Len(t, found, 1)
	assert.Equal(t, issue.SeverityHigh, found[0].Severity)
}

func TestAnalyze_SeededRandomIsQuiet(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestReproducibleRandom(t *testing.T) {
	generator := rand.New(rand.NewSource(1))
	value := generator.Intn(100)
	assert.Less(t, value, 100)
}
`)

	assert.Empty(t, findingsByPattern(findings, "rand.Intn"))
}

func TestAnalyze_ClockReads(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestTimestamps(t *testing.T) {
	created := time.Now()
	assert.False(t, created.IsZero())
}
`)

	found := findingsByPattern(findings, "time.Now")
	require.Len(t, found, 1)
	assert.Equal(t, issue.SeverityHigh, found[0].Severity)
}

func TestAnalyze_HardcodedTimeouts(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestWithShortTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	use(ctx)

	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
	assert.True(t, true)
}
`)

	assert.Len(t, findingsByPattern(findings, "context.WithTimeout"), 1)
	assert.Len(t, findingsByPattern(findings, "time.After"), 1)
}

func TestAnalyze_TimeoutWithoutNumericDurationIsQuiet(t *testing.T) {
	t.Parallel()

	findings := analyze(t, `package sample

func TestWithConfiguredTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	use(ctx)
	assert.True(t, true)
}
`)

	assert.Empty(t, findingsByPattern(findings, "context.WithTimeout"))
}
