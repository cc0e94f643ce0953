// Package runner drives analysis over a project tree: it discovers
// test files, parses and analyzes them on a bounded worker pool, and
// merges per-file findings into one report per checker. Merging happens
// after all files complete, in discovery order, so output is
// deterministic regardless of worker scheduling.
package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/src-d/enry/v2"

	"github.com/probelab/testprobe/internal/observability"
	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/issue"
	"github.com/probelab/testprobe/pkg/syntax"
	"github.com/probelab/testprobe/pkg/testunit"
)

// goLanguage is the classification enry must report for a file to be
// analyzed.
const goLanguage = "Go"

// defaultTestFileSuffix selects test files when Options leaves the
// suffix empty.
const defaultTestFileSuffix = "_test.go"

// Options configures a Runner. Zero values select sensible defaults.
type Options struct {
	// Checkers are run against every extracted test unit, in order.
	Checkers []checkers.Checker

	// Workers bounds concurrent file analysis; 0 means one per CPU.
	Workers int

	// TestFileSuffix selects files during discovery.
	TestFileSuffix string

	// TestNamePrefix selects function declarations as test units.
	TestNamePrefix string

	// CapRules override the aggregator's finding caps.
	CapRules []issue.CapRule

	// Metrics receives run counters; nil disables recording.
	Metrics *observability.Metrics

	// Logger receives skip warnings; nil uses slog.Default.
	Logger *slog.Logger
}

// Runner analyzes a project tree with a fixed checker set.
type Runner struct {
	checkers   []checkers.Checker
	workers    int
	suffix     string
	prefix     string
	aggregator *issue.Aggregator
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a Runner, filling unset options with defaults.
func New(opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	suffix := opts.TestFileSuffix
	if suffix == "" {
		suffix = defaultTestFileSuffix
	}

	prefix := opts.TestNamePrefix
	if prefix == "" {
		prefix = testunit.DefaultPrefix
	}

	caps := opts.CapRules
	if caps == nil {
		caps = issue.DefaultCapRules()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		checkers:   opts.Checkers,
		workers:    workers,
		suffix:     suffix,
		prefix:     prefix,
		aggregator: issue.NewAggregator(caps),
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// fileResult carries one file's findings, indexed by checker position.
// A nil findings slice marks a skipped file.
type fileResult struct {
	findings [][]issue.Finding
}

// Run analyzes every test file under root and returns one report per
// configured checker, in checker order. Files that cannot be read or
// parsed are skipped with a warning; they never fail the run. A root
// with no test files yields reports with empty issue lists.
func (r *Runner) Run(ctx context.Context, root string) ([]*issue.Report, error) {
	files, err := Discover(root, r.suffix)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	sem := make(chan struct{}, r.workers)

	var wg sync.WaitGroup

	for i, path := range files {
		// Stop submitting once cancelled; in-flight files finish.
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = r.analyzeFile(ctx, root, path)
		}(i, path)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reports := make([]*issue.Report, 0, len(r.checkers))

	for checkerIdx, checker := range r.checkers {
		var merged []issue.Finding

		for _, result := range results {
			if result.findings == nil {
				continue
			}

			merged = append(merged, result.findings[checkerIdx]...)
		}

		reports = append(reports, r.aggregator.Aggregate(checker.Name(), merged))
	}

	return reports, nil
}

func (r *Runner) analyzeFile(ctx context.Context, root, path string) fileResult {
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		r.logger.Warn("skipping unreadable file", "path", path, "error", readErr)

		return fileResult{}
	}

	// Suffix matching alone admits impostors like vendored fixtures;
	// only files classified as Go are analyzed.
	if lang := enry.GetLanguage(filepath.Base(path), content); lang != goLanguage {
		r.logger.Debug("skipping non-Go file", "path", path, "language", lang)

		return fileResult{}
	}

	tree, parseErr := syntax.Parse(ctx, content)
	if parseErr != nil {
		r.logger.Warn("failed to parse file", "path", path, "error", parseErr)
		r.metrics.ParseFailure()

		return fileResult{}
	}
	defer tree.Close()

	r.metrics.FileScanned()

	units := testunit.Extract(tree, relativePath(path, root), testunit.WithPrefix(r.prefix))
	r.metrics.UnitsExtracted(len(units))

	result := fileResult{findings: make([][]issue.Finding, len(r.checkers))}

	for checkerIdx, checker := range r.checkers {
		for _, unit := range units {
			found := checker.Analyze(unit)

			for _, finding := range found {
				r.metrics.Finding(checker.Name(), string(finding.Severity))
			}

			result.findings[checkerIdx] = append(result.findings[checkerIdx], found...)
		}
	}

	return result
}

// relativePath reports path relative to root with forward slashes, or
// the path unchanged when it cannot be made relative.
func relativePath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}

	return filepath.ToSlash(rel)
}
