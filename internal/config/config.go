package config

import (
	"errors"

	"github.com/probelab/testprobe/pkg/checkers/antipattern"
	"github.com/probelab/testprobe/pkg/checkers/complexity"
)

// Config is the top-level configuration struct for testprobe.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Checkers []string     `mapstructure:"checkers"`
	Runner   RunnerConfig `mapstructure:"runner"`
	Output   OutputConfig `mapstructure:"output"`
	Limits   LimitsConfig `mapstructure:"limits"`
}

// RunnerConfig holds file discovery and concurrency knobs.
type RunnerConfig struct {
	// Workers bounds concurrent file analysis; 0 means one worker per CPU.
	Workers int `mapstructure:"workers"`

	// TestFileSuffix selects which files are analyzed.
	TestFileSuffix string `mapstructure:"test_file_suffix"`

	// TestNamePrefix selects which function declarations are test units.
	TestNamePrefix string `mapstructure:"test_name_prefix"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	// Format is one of "json", "yaml", or "text".
	Format string `mapstructure:"format"`

	// Validate re-checks every JSON report against the report schema
	// before it is written.
	Validate bool `mapstructure:"validate"`
}

// LimitsConfig carries the per-module thresholds.
type LimitsConfig struct {
	AntiPatterns antipattern.Limits `mapstructure:"anti_patterns"`
	Complexity   complexity.Limits  `mapstructure:"complexity"`
}

// Output formats accepted by OutputConfig.Format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("runner.workers must be non-negative")
	// ErrEmptyTestFileSuffix indicates the test file suffix is empty.
	ErrEmptyTestFileSuffix = errors.New("runner.test_file_suffix must not be empty")
	// ErrEmptyTestNamePrefix indicates the test name prefix is empty.
	ErrEmptyTestNamePrefix = errors.New("runner.test_name_prefix must not be empty")
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("output.format must be one of json, yaml, text")
	// ErrInvalidMaxAssertions indicates the assertion threshold is not positive.
	ErrInvalidMaxAssertions = errors.New("limits.anti_patterns.max_assertions must be positive")
	// ErrInvalidMaxFunctionLines indicates the line threshold is not positive.
	ErrInvalidMaxFunctionLines = errors.New("limits.complexity.max_function_lines must be positive")
	// ErrInvalidMaxMocks indicates the mock threshold is not positive.
	ErrInvalidMaxMocks = errors.New("limits.complexity.max_mocks must be positive")
	// ErrInvalidMaxControlFlow indicates the control-flow threshold is not positive.
	ErrInvalidMaxControlFlow = errors.New("limits.complexity.max_control_flow must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	runnerErr := c.validateRunner()
	if runnerErr != nil {
		return runnerErr
	}

	outputErr := c.validateOutput()
	if outputErr != nil {
		return outputErr
	}

	return c.validateLimits()
}

func (c *Config) validateRunner() error {
	if c.Runner.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Runner.TestFileSuffix == "" {
		return ErrEmptyTestFileSuffix
	}

	if c.Runner.TestNamePrefix == "" {
		return ErrEmptyTestNamePrefix
	}

	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatJSON, FormatYAML, FormatText:
		return nil
	default:
		return ErrInvalidFormat
	}
}

func (c *Config) validateLimits() error {
	if c.Limits.AntiPatterns.MaxAssertions <= 0 {
		return ErrInvalidMaxAssertions
	}

	if c.Limits.Complexity.MaxFunctionLines <= 0 {
		return ErrInvalidMaxFunctionLines
	}

	if c.Limits.Complexity.MaxMocks <= 0 {
		return ErrInvalidMaxMocks
	}

	if c.Limits.Complexity.MaxControlFlow <= 0 {
		return ErrInvalidMaxControlFlow
	}

	return nil
}
