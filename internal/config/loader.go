package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".mmcore"
	configType      = "yaml"
	envPrefix       = "MMCORE"
	envKeySeparator = "_"
)

// LoadConfig reads configuration from configPath (if set), falling back to
// ".mmcore.yaml" in the working directory and the user's home directory,
// layered under environment variables prefixed MMCORE_ and, below that,
// the DefaultXxx constants. It validates the raw settings against
// configSchema before unmarshalling, then runs Config.Validate.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigForRoot(configPath, "")
}

// LoadConfigForRoot is LoadConfig, except rootOverride (when non-empty) wins
// over whatever "root" the config file/environment supplied, the way a CLI
// positional argument should outrank a config file default. It is applied
// before Validate, so a command invoked as `mmcore check <root>` never trips
// ErrMissingRoot merely because no config file set one.
func LoadConfigForRoot(configPath, rootOverride string) (*Config, error) {
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

		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if rootOverride != "" {
		viperCfg.Set("root", rootOverride)
	}

	if err := validateSchema(viperCfg.AllSettings()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults seeds viperCfg with every DefaultXxx constant, mirroring
// the teacher's flat SetDefault call list.
func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("autosplit", DefaultAutosplit)
	viperCfg.SetDefault("timing", DefaultTiming)
	viperCfg.SetDefault("trace_recalc", DefaultTraceRecalc)
	viperCfg.SetDefault("outline", DefaultOutline)
	viperCfg.SetDefault("incremental", DefaultIncremental)
	viperCfg.SetDefault("jobs", DefaultJobs)
	viperCfg.SetDefault("parse_statements", DefaultParseStatements)

	viperCfg.SetDefault("observability.service_name", DefaultServiceName)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", DefaultLogJSON)
	viperCfg.SetDefault("observability.metrics_addr", DefaultMetricsAddr)
	viperCfg.SetDefault("observability.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
}
