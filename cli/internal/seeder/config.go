// Package seeder generates fake network and email records and submits them
// to the respond API for demos and load testing.
package seeder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
)

// Config represents the complete seeder configuration
type Config struct {
	Version   string                    `mapstructure:"version" yaml:"version"`
	Defaults  DefaultsConfig            `mapstructure:"defaults" yaml:"defaults"`
	Scenarios map[string]ScenarioConfig `mapstructure:"scenarios" yaml:"scenarios"`
}

// DefaultsConfig holds the baseline run settings
type DefaultsConfig struct {
	Count        int           `mapstructure:"count" yaml:"count"`
	Kinds        []string      `mapstructure:"kinds" yaml:"kinds"`
	AnomalyRatio float64       `mapstructure:"anomaly_ratio" yaml:"anomaly_ratio"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	Seed         int64         `mapstructure:"seed" yaml:"seed"`
}

// ScenarioConfig injects a burst of one anomaly pattern
type ScenarioConfig struct {
	Kind    string `mapstructure:"kind" yaml:"kind"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Count   int    `mapstructure:"count" yaml:"count"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LoadConfig loads configuration with cascade: flags > ./seeder.yaml > ~/.tlens/seeder.yaml > defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("seeder")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SEEDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tlens"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")
	v.SetDefault("defaults.count", 100)
	v.SetDefault("defaults.kinds", []string{client.KindNetwork, client.KindEmail})
	v.SetDefault("defaults.anomaly_ratio", 0.1)
	v.SetDefault("defaults.concurrency", 4)
	v.SetDefault("defaults.interval", 0)
	v.SetDefault("defaults.seed", 0)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Defaults.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	if c.Defaults.AnomalyRatio < 0 || c.Defaults.AnomalyRatio > 1 {
		return fmt.Errorf("anomaly_ratio must be between 0 and 1")
	}
	if c.Defaults.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.Defaults.Count > 0 && len(c.Defaults.Kinds) == 0 {
		return fmt.Errorf("at least one kind is required")
	}
	for _, kind := range c.Defaults.Kinds {
		if kind != client.KindNetwork && kind != client.KindEmail {
			return fmt.Errorf("unknown kind %q", kind)
		}
	}

	for name, s := range c.Scenarios {
		if !KnownPattern(s.Kind, s.Pattern) {
			return fmt.Errorf("scenario %s: unknown %s pattern %q", name, s.Kind, s.Pattern)
		}
		if s.Count < 1 {
			return fmt.Errorf("scenario %s: count must be at least 1", name)
		}
	}
	return nil
}

// EnabledScenarios returns enabled scenario names, sorted.
func (c *Config) EnabledScenarios() []string {
	var names []string
	for name, s := range c.Scenarios {
		if s.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetScenario returns a specific scenario by name
func (c *Config) GetScenario(name string) (ScenarioConfig, bool) {
	s, ok := c.Scenarios[name]
	return s, ok
}
