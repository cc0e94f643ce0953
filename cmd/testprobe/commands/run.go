// Package commands implements CLI command handlers for testprobe.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probelab/testprobe/internal/config"
	"github.com/probelab/testprobe/internal/observability"
	"github.com/probelab/testprobe/internal/runner"
	"github.com/probelab/testprobe/pkg/checkers"
	"github.com/probelab/testprobe/pkg/checkers/antipattern"
	"github.com/probelab/testprobe/pkg/checkers/complexity"
	"github.com/probelab/testprobe/pkg/checkers/extdeps"
	"github.com/probelab/testprobe/pkg/checkers/flaky"
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	checkerFlags []string
	format       string
	configPath   string
	workers      int
	validate     bool
	noColor      bool
	path         string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Analyze test files and emit quality reports",
		Long:  "Analyze every test file under the given path and emit one quality report per checker.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringSliceVarP(&rc.checkerFlags, "checkers", "c", nil,
		"Checker flags to run (example: anti-patterns,flaky-patterns; empty = all)")
	cmd.Flags().StringVar(&rc.format, "format", "", "Output format: json, yaml, text (default from config)")
	cmd.Flags().StringVar(&rc.configPath, "config", "", "Explicit config file path")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().BoolVar(&rc.validate, "validate", false, "Validate JSON reports against the report schema before writing")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().StringVarP(&rc.path, "path", "p", ".", "Project path to analyze")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	rc.applyFlagOverrides(cmd, cfg)

	registry := buildRegistry(cfg)

	selected, err := selectCheckers(registry, rc.checkerFlags, cfg.Checkers)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	probe := runner.New(runner.Options{
		Checkers:       selected,
		Workers:        cfg.Runner.Workers,
		TestFileSuffix: cfg.Runner.TestFileSuffix,
		TestNamePrefix: cfg.Runner.TestNamePrefix,
		Metrics:        metrics,
		Logger:         slog.Default(),
	})

	reports, err := probe.Run(cmd.Context(), rc.resolvePath(args))
	if err != nil {
		return err
	}

	return writeReports(reports, renderOptions{
		format:   cfg.Output.Format,
		validate: cfg.Output.Validate,
		noColor:  rc.noColor,
	}, cmd.OutOrStdout())
}

// applyFlagOverrides copies explicit flags over file-sourced settings.
func (rc *RunCommand) applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if rc.format != "" {
		cfg.Output.Format = rc.format
	}

	if cmd.Flags().Changed("validate") {
		cfg.Output.Validate = rc.validate
	}

	if cmd.Flags().Changed("workers") {
		cfg.Runner.Workers = rc.workers
	}
}

func (rc *RunCommand) resolvePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return rc.path
}

// buildRegistry assembles the built-in checkers with configured limits,
// in report order.
func buildRegistry(cfg *config.Config) *checkers.Registry {
	registry := checkers.NewRegistry()
	registry.Register(antipattern.New(cfg.Limits.AntiPatterns))
	registry.Register(complexity.New(cfg.Limits.Complexity))
	registry.Register(extdeps.New())
	registry.Register(flaky.New())

	return registry
}

// selectCheckers resolves the checker selection: explicit flags win,
// then config, then every registered checker.
func selectCheckers(registry *checkers.Registry, flagValues, configValues []string) ([]checkers.Checker, error) {
	requested := flagValues
	if len(requested) == 0 {
		requested = configValues
	}

	if len(requested) == 0 {
		return registry.All(), nil
	}

	selected := make([]checkers.Checker, 0, len(requested))

	for _, flag := range requested {
		checker, err := registry.Lookup(flag)
		if err != nil {
			return nil, fmt.Errorf("%w\nAvailable: %s", err, availableFlags(registry))
		}

		selected = append(selected, checker)
	}

	return selected, nil
}

func availableFlags(registry *checkers.Registry) string {
	return strings.Join(registry.Flags(), ", ")
}
