package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arashi-logworks/grokline/internal/parser"
)

// ParserConfig and TransformConfig are the same shapes the parser package
// itself works with. Config used to carry its own near-duplicate copies of
// both; aliasing them here means a field this module's grok pipeline doesn't
// understand can no longer slip silently past Validate, and a field the
// pipeline gains shows up in config parsing for free.
type ParserConfig = parser.ParserConfig
type TransformConfig = parser.TransformConfig

// Config represents the main configuration for a grokline instance: where to
// read log lines from, how to parse and transform them, and where parse
// failures go.
type Config struct {
	Inputs     InputsConfig      `yaml:"inputs"`
	Logging    LoggingConfig     `yaml:"logging"`
	Parser     *ParserConfig     `yaml:"parser,omitempty"`
	Transforms []TransformConfig `yaml:"transforms,omitempty"`
	DeadLetter *DeadLetterConfig `yaml:"dead_letter,omitempty"`
}

// InputsConfig defines input sources. File tailing is the only input this
// module implements.
type InputsConfig struct {
	Files []FileInputConfig `yaml:"files,omitempty"`
}

// FileInputConfig defines file input configuration
type FileInputConfig struct {
	Paths      []string          `yaml:"paths"`
	Parser     *ParserConfig     `yaml:"parser,omitempty"`
	Transforms []TransformConfig `yaml:"transforms,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DeadLetterConfig holds dead letter queue configuration
type DeadLetterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Dir           string        `yaml:"dir"`
	MaxSize       int64         `yaml:"max_size,omitempty"`
	MaxAge        time.Duration `yaml:"max_age,omitempty"`
	FlushInterval time.Duration `yaml:"flush_interval,omitempty"`
}

// Default values
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultDLQDir    = "/var/lib/grokline/dlq"
)

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.DeadLetter != nil && c.DeadLetter.Enabled && c.DeadLetter.Dir == "" {
		c.DeadLetter.Dir = DefaultDLQDir
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Inputs.Files) == 0 {
		return fmt.Errorf("at least one file input must be configured")
	}

	for i, fileInput := range c.Inputs.Files {
		if len(fileInput.Paths) == 0 {
			return fmt.Errorf("file input %d has no paths configured", i)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.DeadLetter != nil && c.DeadLetter.Enabled && c.DeadLetter.Dir == "" {
		return fmt.Errorf("dead letter queue is enabled but no directory is configured")
	}

	return nil
}

// LoadOrDefault loads configuration from file or returns a default configuration
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			Files: []FileInputConfig{
				{Paths: []string{"/var/log/app.log"}},
			},
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Parser: parser.DefaultParserConfig(),
		DeadLetter: &DeadLetterConfig{
			Enabled: true,
			Dir:     DefaultDLQDir,
		},
	}
}
