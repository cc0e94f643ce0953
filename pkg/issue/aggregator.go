package issue

import (
	"sort"
	"strings"
)

// Default per-pattern caps. Individual source lines can trigger one
// finding per occurrence, so high-frequency categories are truncated to
// keep large-codebase reports readable.
const (
	GlobalStateCap  = 20
	NoAssertionsCap = 30
	TimeNowCap      = 20
	TimeoutCap      = 15
)

// CapRule limits one noisy finding category to its first Limit entries
// after the global (file, line) sort.
type CapRule struct {
	Name    string
	Limit   int
	Matches func(Finding) bool
}

// DefaultCapRules returns the documented caps for the built-in checkers.
func DefaultCapRules() []CapRule {
	return []CapRule{
		{
			Name:    "global-state",
			Limit:   GlobalStateCap,
			Matches: func(f Finding) bool { return f.PatternID == "global state" },
		},
		{
			Name:    "no-assertions",
			Limit:   NoAssertionsCap,
			Matches: func(f Finding) bool { return f.PatternID == "no assertions" },
		},
		{
			Name:    "time-now",
			Limit:   TimeNowCap,
			Matches: func(f Finding) bool { return f.PatternID == "time.Now" },
		},
		{
			Name:  "hardcoded-timeout",
			Limit: TimeoutCap,
			Matches: func(f Finding) bool {
				return strings.Contains(f.PatternID, "WithTimeout") ||
					strings.Contains(f.PatternID, "After")
			},
		},
	}
}

// Aggregator normalizes findings from all checkers for all files into a
// Report: sort by (file, line), truncate capped categories, re-sort,
// summarize.
type Aggregator struct {
	caps []CapRule
}

// NewAggregator creates an Aggregator with the given cap rules.
func NewAggregator(caps []CapRule) *Aggregator {
	return &Aggregator{caps: caps}
}

// Aggregate builds the final report for one checker run. The input
// slice is not mutated; findings must be the complete set for the run,
// merged after every file's pipeline finished, so caps retain the
// lexicographically-smallest entries rather than scan-order ones.
func (a *Aggregator) Aggregate(script string, findings []Finding) *Report {
	ordered := make([]Finding, len(findings))
	copy(ordered, findings)
	sortFindings(ordered)

	for _, rule := range a.caps {
		ordered = applyCap(ordered, rule)
	}

	sortFindings(ordered)

	return &Report{
		Script:  script,
		Issues:  ordered,
		Summary: summarize(ordered),
	}
}

// applyCap keeps only the first rule.Limit findings matched by the rule,
// preserving the relative order of everything else.
func applyCap(findings []Finding, rule CapRule) []Finding {
	kept := make([]Finding, 0, len(findings))
	matched := 0

	for _, f := range findings {
		if rule.Matches(f) {
			matched++
			if matched > rule.Limit {
				continue
			}
		}

		kept = append(kept, f)
	}

	return kept
}

func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}

		return findings[i].Line < findings[j].Line
	})
}

func summarize(findings []Finding) Summary {
	summary := Summary{TotalIssues: len(findings)}
	files := make(map[string]struct{}, len(findings))

	for _, f := range findings {
		files[f.File] = struct{}{}

		switch f.Severity {
		case SeverityCritical:
			summary.CriticalCount++
		case SeverityHigh:
			summary.HighCount++
		case SeverityMedium:
			summary.MediumCount++
		case SeverityLow:
		}
	}

	summary.FilesWithIssues = len(files)

	return summary
}
