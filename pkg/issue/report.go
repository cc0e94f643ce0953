package issue

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Summary holds the aggregate counts for one report.
type Summary struct {
	TotalIssues     int `json:"total_issues"     yaml:"total_issues"`
	CriticalCount   int `json:"critical_count"   yaml:"critical_count"`
	HighCount       int `json:"high_count"       yaml:"high_count"`
	MediumCount     int `json:"medium_count"     yaml:"medium_count"`
	FilesWithIssues int `json:"files_with_issues" yaml:"files_with_issues"`
}

// Report is the serialized output of one checker run.
type Report struct {
	Script  string    `json:"script"  yaml:"script"`
	Issues  []Finding `json:"issues"  yaml:"issues"`
	Summary Summary   `json:"summary" yaml:"summary"`
}

// jsonIndent matches the two-space indentation of the report format.
const jsonIndent = "  "

// WriteJSON writes the report as indented JSON. Output is deterministic
// for identical inputs.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("issue: marshal report: %w", err)
	}

	data = append(data, '\n')

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("issue: write report: %w", err)
	}

	return nil
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()

	err := encoder.Encode(r)
	if err != nil {
		return fmt.Errorf("issue: encode report yaml: %w", err)
	}

	return nil
}
