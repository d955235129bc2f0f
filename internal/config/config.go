// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "CRATESFYI"

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DBURL              string        `mapstructure:"DB_URL"`
	GithubUsername     string        `mapstructure:"GITHUB_USERNAME"`
	GithubAccessToken  string        `mapstructure:"GITHUB_ACCESSTOKEN"`
	GithubAPIURL       string        `mapstructure:"GITHUB_API_URL"`
	SyncInterval       time.Duration `mapstructure:"SYNC_INTERVAL"`
	FreshnessThreshold time.Duration `mapstructure:"FRESHNESS_THRESHOLD"`
	RequestDelay       time.Duration `mapstructure:"REQUEST_DELAY"`
	MarkFailedAttempts bool          `mapstructure:"MARK_FAILED_ATTEMPTS"`
	ListenAddr         string        `mapstructure:"LISTEN_ADDR"`
}

var defaults = map[string]any{
	"LOG_LEVEL":            "info",
	"DB_URL":               "",
	"GITHUB_USERNAME":      "",
	"GITHUB_ACCESSTOKEN":   "",
	"GITHUB_API_URL":       "https://api.github.com/",
	"SYNC_INTERVAL":        "1h",
	"FRESHNESS_THRESHOLD":  "24h",
	"REQUEST_DELAY":        "2s",
	"MARK_FAILED_ATTEMPTS": false,
	"LISTEN_ADDR":          ":8080",
}

// LoadConfig reads configuration from a .env file in the working directory
// and/or CRATESFYI_* environment variables. The environment wins.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	for key := range defaults {
		if err := v.BindEnv(key, EnvPrefix+"_"+key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBURL == "" {
		return errors.New(EnvPrefix + "_DB_URL is a required configuration field")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf(EnvPrefix+"_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.SyncInterval <= 0 {
		return errors.New(EnvPrefix + "_SYNC_INTERVAL must be a positive duration (e.g. 1h)")
	}
	if c.FreshnessThreshold <= 0 {
		return errors.New(EnvPrefix + "_FRESHNESS_THRESHOLD must be a positive duration (e.g. 24h)")
	}
	if c.RequestDelay < 0 {
		return errors.New(EnvPrefix + "_REQUEST_DELAY must not be negative")
	}
	return nil
}
