// Package issue defines the finding model shared by all checkers and
// the aggregation step that turns per-file findings into a report.
package issue

// Severity ranks a finding. The set is fixed; checkers never invent
// severities outside it.
type Severity string

// Severity levels, highest first.
const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Finding is one reported defect instance. Immutable once constructed;
// field tags define the stable wire format.
type Finding struct {
	File        string         `json:"file"`
	Line        int            `json:"line"`
	TestName    string         `json:"test_name"`
	Message     string         `json:"issue"`
	Category    string         `json:"category"`
	Severity    Severity       `json:"severity"`
	PatternID   string         `json:"pattern"`
	CodeSnippet string         `json:"code_snippet"`
	Suggestion  string         `json:"suggestion"`
	Metrics     map[string]int `json:"metrics,omitempty"`
}
