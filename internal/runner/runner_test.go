package runner_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/testprobe/internal/runner"
	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/checkers/extdeps"
	"github.com/probelab/testprobe/pkg/checkers/flaky"
)

const sleepySource = `package sample

import (
	"testing"
	"time"
)

func TestSleepsThenChecksClock(t *testing.T) {
	time.Sleep(50 * time.Millisecond)

	now := time.Now()
	_ = now
}
`

const cleanSource = `package sample

import "testing"

func TestAddition(t *testing.T) {
	if 1+1 != 2 {
		t.Fatal("arithmetic is broken")
	}
}
`

func sampleCheckers() []checkers.Checker {
	return []checkers.Checker{extdeps.New(), flaky.New()}
}

func TestRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sleepy_test.go"), sleepySource)
	writeFile(t, filepath.Join(root, "clean_test.go"), cleanSource)

	probe := runner.New(runner.Options{Checkers: sampleCheckers()})

	reports, err := probe.Run(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Reports come back in checker order.
	assert.Equal(t, "check-external-deps", reports[0].Script)
	assert.Equal(t, "check-flaky-patterns", reports[1].Script)

	require.Len(t, reports[0].Issues, 1)
	assert.Equal(t, "time.Sleep", reports[0].Issues[0].PatternID)
	assert.Equal(t, "sleepy_test.go", reports[0].Issues[0].File)
	assert.Equal(t, "TestSleepsThenChecksClock", reports[0].Issues[0].TestName)

	require.Len(t, reports[1].Issues, 1)
	assert.Equal(t, "time.Now", reports[1].Issues[0].PatternID)
}

func TestRun_IsDeterministic(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, filepath.Join(root, name, "pkg_test.go"), sleepySource)
	}

	probe := runner.New(runner.Options{Checkers: sampleCheckers(), Workers: 4})

	first, err := probe.Run(context.Background(), root)
	require.NoError(t, err)

	second, err := probe.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	require.Len(t, first[0].Issues, 4)
	assert.Equal(t, "a/pkg_test.go", first[0].Issues[0].File)
	assert.Equal(t, "d/pkg_test.go", first[0].Issues[3].File)
}

func TestRun_SkipsUnparseableFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken_test.go"), "package broken\nfunc {{{\n")
	writeFile(t, filepath.Join(root, "sleepy_test.go"), sleepySource)

	probe := runner.New(runner.Options{Checkers: sampleCheckers()})

	reports, err := probe.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, reports[0].Issues, 1)
	assert.Equal(t, "sleepy_test.go", reports[0].Issues[0].File)
}

func TestRun_EmptyRoot(t *testing.T) {
	t.Parallel()

	probe := runner.New(runner.Options{Checkers: sampleCheckers()})

	reports, err := probe.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	for _, report := range reports {
		assert.Empty(t, report.Issues)
		assert.Zero(t, report.Summary.TotalIssues)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sleepy_test.go"), sleepySource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := runner.New(runner.Options{Checkers: sampleCheckers()})

	_, err := probe.Run(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}
