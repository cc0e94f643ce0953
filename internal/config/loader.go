package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/probelab/testprobe/pkg/checkers/antipattern"
	"github.com/probelab/testprobe/pkg/checkers/complexity"
	"github.com/probelab/testprobe/pkg/testunit"
)

// configName is the config file name without extension.
const configName = ".testprobe"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for testprobe settings.
const envPrefix = "TESTPROBE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// DefaultTestFileSuffix selects Go test files during discovery.
const DefaultTestFileSuffix = "_test.go"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	antiPatternLimits := antipattern.DefaultLimits()
	complexityLimits := complexity.DefaultLimits()

	viperCfg.SetDefault("checkers", []string{})

	viperCfg.SetDefault("runner.workers", 0)
	viperCfg.SetDefault("runner.test_file_suffix", DefaultTestFileSuffix)
	viperCfg.SetDefault("runner.test_name_prefix", testunit.DefaultPrefix)

	viperCfg.SetDefault("output.format", FormatJSON)
	viperCfg.SetDefault("output.validate", false)

	viperCfg.SetDefault("limits.anti_patterns.max_assertions", antiPatternLimits.MaxAssertions)
	viperCfg.SetDefault("limits.complexity.max_function_lines", complexityLimits.MaxFunctionLines)
	viperCfg.SetDefault("limits.complexity.max_mocks", complexityLimits.MaxMocks)
	viperCfg.SetDefault("limits.complexity.max_control_flow", complexityLimits.MaxControlFlow)
}
