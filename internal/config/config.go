// Package config provides application configuration and the loader for
// scraping job definitions.
package config

import "time"

// Config is the application-level configuration, resolved by viper from
// flags, SCRAPELINE_* environment variables, an optional config file and
// built-in defaults.
type Config struct {
	// ConfigDir is the base path for job definitions; scrape configs live
	// under its apis/ subdirectory.
	ConfigDir string `mapstructure:"config_dir"`

	// OutputDir is where job output files are written.
	OutputDir string `mapstructure:"output_dir"`

	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// StoreConfig contains run-history database configuration for libsql.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig controls CLI logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// HTTPConfig contains transport defaults shared by all jobs.
type HTTPConfig struct {
	// Timeout bounds the whole client exchange; per-endpoint timeouts are
	// enforced separately per attempt.
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}
