package commands

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/probelab/testprobe/internal/config"
	"github.com/probelab/testprobe/pkg/issue"
)

type renderOptions struct {
	format   string
	validate bool
	noColor  bool
}

// writeReports renders every report in the requested format. JSON and
// YAML emit one document per report; text renders a table per report.
func writeReports(reports []*issue.Report, opts renderOptions, w io.Writer) error {
	switch opts.format {
	case config.FormatJSON:
		return writeJSONReports(reports, opts.validate, w)
	case config.FormatYAML:
		return writeYAMLReports(reports, w)
	case config.FormatText:
		return writeTextReports(reports, opts.noColor, w)
	default:
		return fmt.Errorf("%w: %s", config.ErrInvalidFormat, opts.format)
	}
}

func writeJSONReports(reports []*issue.Report, validate bool, w io.Writer) error {
	for _, report := range reports {
		var buf bytes.Buffer

		err := report.WriteJSON(&buf)
		if err != nil {
			return fmt.Errorf("encode report %s: %w", report.Script, err)
		}

		if validate {
			validateErr := issue.ValidateReportJSON(buf.Bytes())
			if validateErr != nil {
				return fmt.Errorf("report %s: %w", report.Script, validateErr)
			}
		}

		_, writeErr := w.Write(buf.Bytes())
		if writeErr != nil {
			return fmt.Errorf("write report %s: %w", report.Script, writeErr)
		}
	}

	return nil
}

func writeYAMLReports(reports []*issue.Report, w io.Writer) error {
	for i, report := range reports {
		if i > 0 {
			_, err := io.WriteString(w, "---\n")
			if err != nil {
				return fmt.Errorf("write report separator: %w", err)
			}
		}

		err := report.WriteYAML(w)
		if err != nil {
			return fmt.Errorf("encode report %s: %w", report.Script, err)
		}
	}

	return nil
}

func writeTextReports(reports []*issue.Report, noColor bool, w io.Writer) error {
	paint := severityPainter(noColor)

	for _, report := range reports {
		summary := report.Summary

		_, err := fmt.Fprintf(w, "%s: %s issues (%d critical, %d high, %d medium) in %d files\n",
			report.Script,
			humanize.Comma(int64(summary.TotalIssues)),
			summary.CriticalCount,
			summary.HighCount,
			summary.MediumCount,
			summary.FilesWithIssues,
		)
		if err != nil {
			return fmt.Errorf("write summary %s: %w", report.Script, err)
		}

		if len(report.Issues) == 0 {
			continue
		}

		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.AppendHeader(table.Row{"Severity", "Location", "Test", "Issue"})

		for _, finding := range report.Issues {
			tbl.AppendRow(table.Row{
				paint(finding.Severity),
				fmt.Sprintf("%s:%d", finding.File, finding.Line),
				finding.TestName,
				finding.Message,
			})
		}

		tbl.SetStyle(table.StyleLight)
		tbl.Render()
	}

	return nil
}

// severityPainter maps severities to terminal colors, or to plain text
// when colors are disabled.
func severityPainter(noColor bool) func(issue.Severity) string {
	if noColor {
		return func(s issue.Severity) string { return string(s) }
	}

	criticalColor := color.New(color.FgRed, color.Bold)
	highColor := color.New(color.FgYellow)
	mediumColor := color.New(color.FgCyan)

	return func(s issue.Severity) string {
		switch s {
		case issue.SeverityCritical:
			return criticalColor.Sprint(string(s))
		case issue.SeverityHigh:
			return highColor.Sprint(string(s))
		case issue.SeverityMedium:
			return mediumColor.Sprint(string(s))
		default:
			return string(s)
		}
	}
}
