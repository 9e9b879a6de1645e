// Package config loads sheetgraph's optional config file and environment
// overrides via viper, mirroring the config layer of the rest of the pack.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the CLI's configurable tunables, overridable by a YAML/JSON
// config file and by SHEETGRAPH_-prefixed environment variables.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig mirrors analysis.Options' file/env-configurable fields.
type AnalysisConfig struct {
	TopDriversCount  int  `mapstructure:"top_drivers_count"`
	DetectAnomalies  bool `mapstructure:"detect_anomalies"`
	IdentifyDrivers  bool `mapstructure:"identify_cost_drivers"`
	FoldStringConcat bool `mapstructure:"fold_string_concat"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TopDriversCount: 50,
			DetectAnomalies: true,
			IdentifyDrivers: true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from path (if non-empty) layered over SHEETGRAPH_
// environment overrides, falling back to Default() when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("analysis.top_drivers_count", d.Analysis.TopDriversCount)
	v.SetDefault("analysis.detect_anomalies", d.Analysis.DetectAnomalies)
	v.SetDefault("analysis.identify_cost_drivers", d.Analysis.IdentifyDrivers)
	v.SetDefault("analysis.fold_string_concat", d.Analysis.FoldStringConcat)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
