// Package config provides configuration loading for the respond service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the respond service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Reanalysis ReanalysisConfig `mapstructure:"reanalysis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ConnString renders the settings as a postgres:// URL.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// AuthConfig holds JWT settings. Accounts signing up with one of AdminEmails
// receive the admin role.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	AdminEmails    []string      `mapstructure:"admin_emails"`
}

// PredictionConfig points at the external ML prediction service
type PredictionConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds Redis configuration for submit rate limiting
type RedisConfig struct {
	URL               string        `mapstructure:"url"`
	Enabled           bool          `mapstructure:"enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AlertsConfig holds alert listing settings
type AlertsConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
}

// ReanalysisConfig controls the opt-in background retry of pending records.
// Disabled by default: a failed prediction raises no alert unless an
// operator turns the sweep on.
type ReanalysisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Grace     time.Duration `mapstructure:"grace"`
	BatchSize int           `mapstructure:"batch_size"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "threatlens")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "threatlens")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_conns", 25)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "168h")
	v.SetDefault("auth.admin_emails", []string{})

	v.SetDefault("prediction.url", "http://localhost:8000")
	v.SetDefault("prediction.timeout", "5s")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.rate_limit_requests", 120)
	v.SetDefault("redis.rate_limit_window", "1m")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("alerts.default_page_size", 50)

	v.SetDefault("reanalysis.enabled", false)
	v.SetDefault("reanalysis.interval", "5m")
	v.SetDefault("reanalysis.grace", "2m")
	v.SetDefault("reanalysis.batch_size", 100)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/threatlens/respond")
	}

	// RESPOND_SERVER_PORT, RESPOND_AUTH_JWT_SECRET, ...
	v.SetEnvPrefix("RESPOND")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Prediction.URL == "" {
		return fmt.Errorf("prediction.url is required")
	}
	if c.Prediction.Timeout <= 0 {
		return fmt.Errorf("prediction.timeout must be positive")
	}
	if c.Alerts.DefaultPageSize < 1 {
		return fmt.Errorf("alerts.default_page_size must be at least 1")
	}
	if c.Redis.Enabled && (c.Redis.RateLimitRequests < 1 || c.Redis.RateLimitWindow <= 0) {
		return fmt.Errorf("redis rate limit requests and window must be positive")
	}
	if c.Reanalysis.Enabled && (c.Reanalysis.Interval <= 0 || c.Reanalysis.BatchSize < 1) {
		return fmt.Errorf("reanalysis interval and batch_size must be positive")
	}
	return nil
}
