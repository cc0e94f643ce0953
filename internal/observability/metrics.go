// Package observability exposes Prometheus instruments for analysis
// runs. Instruments are optional everywhere they appear; a nil
// *Metrics is a valid no-op recorder so library code never branches on
// whether metrics are enabled.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricFilesScanned  = "testprobe_files_scanned_total"
	metricParseFailures = "testprobe_parse_failures_total"
	metricUnits         = "testprobe_test_units_total"
	metricFindings      = "testprobe_findings_total"

	labelChecker  = "checker"
	labelSeverity = "severity"
)

// Metrics holds the run-level instruments.
type Metrics struct {
	registry      *prometheus.Registry
	filesScanned  prometheus.Counter
	parseFailures prometheus.Counter
	units         prometheus.Counter
	findings      *prometheus.CounterVec
}

// NewMetrics creates instruments on a fresh registry. Each call creates
// an independent registry to avoid collector conflicts across runs.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		filesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: metricFilesScanned,
			Help: "Total test files scanned",
		}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: metricParseFailures,
			Help: "Total test files skipped due to parse failures",
		}),
		units: factory.NewCounter(prometheus.CounterOpts{
			Name: metricUnits,
			Help: "Total test units extracted",
		}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricFindings,
			Help: "Total findings by checker and severity",
		}, []string{labelChecker, labelSeverity}),
	}
}

// FileScanned records one scanned test file. Safe on a nil receiver.
func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}

	m.filesScanned.Inc()
}

// ParseFailure records one skipped file. Safe on a nil receiver.
func (m *Metrics) ParseFailure() {
	if m == nil {
		return
	}

	m.parseFailures.Inc()
}

// UnitsExtracted records extracted test units. Safe on a nil receiver.
func (m *Metrics) UnitsExtracted(count int) {
	if m == nil {
		return
	}

	m.units.Add(float64(count))
}

// Finding records one finding for a checker. Safe on a nil receiver.
func (m *Metrics) Finding(checker, severity string) {
	if m == nil {
		return
	}

	m.findings.WithLabelValues(checker, severity).Inc()
}

// Handler returns the /metrics scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
