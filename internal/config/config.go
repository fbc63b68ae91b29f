// Package config loads the gtfs2sql command configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/transitfeeds/gtfssql"
)

const (
	// MatchContains selects the substring header matcher.
	MatchContains = "contains"
	// MatchExact selects the exact header matcher.
	MatchExact = "exact"
)

var (
	// ErrInvalidConfig is returned by Validate for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all configuration for one gtfs2sql run
type Config struct {
	Feed                 string        `yaml:"feed"`
	Database             string        `yaml:"database"`
	BatchSize            int           `yaml:"batch_size"`
	Delimiter            string        `yaml:"delimiter"`
	ColumnMatch          string        `yaml:"column_match"`
	ReportMissingColumns bool          `yaml:"report_missing_columns"`
	Optimize             *bool         `yaml:"optimize"`
	LogLevel             string        `yaml:"log_level"`
	Metrics              MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Pushgateway configuration
type MetricsConfig struct {
	PushURL string `yaml:"push_url"`
	Job     string `yaml:"job"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	optimize := true
	return &Config{
		BatchSize:   gtfssql.DefaultBatchSize,
		Delimiter:   ",",
		ColumnMatch: MatchContains,
		Optimize:    &optimize,
		LogLevel:    "info",
		Metrics: MetricsConfig{
			Job: gtfssql.DefaultMetricsJob,
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys absent from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if config.Optimize == nil {
		optimize := true
		config.Optimize = &optimize
	}
	if config.Metrics.Job == "" {
		config.Metrics.Job = gtfssql.DefaultMetricsJob
	}
	return config, nil
}

// Validate checks the values that cannot be validated by the import builder.
// Feed and database paths are checked when the import is built.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	switch strings.ToLower(c.ColumnMatch) {
	case MatchContains, MatchExact:
	default:
		return fmt.Errorf("%w: column_match must be %q or %q, got %q", ErrInvalidConfig, MatchContains, MatchExact, c.ColumnMatch)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune returns the field delimiter. The word "tab" and the escape
// "\t" both select a tab.
func (c *Config) DelimiterRune() (rune, error) {
	switch strings.ToLower(c.Delimiter) {
	case "tab", `\t`:
		return '\t', nil
	case "":
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError || size != len(c.Delimiter) {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", ErrInvalidConfig, c.Delimiter)
	}
	return r, nil
}

// Matcher returns the column matcher selected by column_match.
func (c *Config) Matcher() gtfssql.ColumnMatcher {
	if strings.EqualFold(c.ColumnMatch, MatchExact) {
		return gtfssql.ExactMatcher
	}
	return gtfssql.ContainsMatcher
}

// OptimizeEnabled reports whether the post-processing pass runs.
func (c *Config) OptimizeEnabled() bool {
	return c.Optimize == nil || *c.Optimize
}

// Level parses log_level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return level, nil
}
