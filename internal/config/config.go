// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rentloop/listr/internal/flow"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Snapshot backends.
const (
	BackendNATS = "nats"
	BackendFile = "file"
)

// Config holds all configuration values for listr.
type Config struct {
	APIURL            string        `mapstructure:"api_url" yaml:"api_url"`
	APIToken          string        `mapstructure:"api_token" yaml:"api_token,omitempty"`
	User              string        `mapstructure:"user" yaml:"user"`
	DataDir           string        `mapstructure:"data_dir" yaml:"data_dir"`
	SnapshotBackend   string        `mapstructure:"snapshot_backend" yaml:"snapshot_backend"`
	DefaultFlow       string        `mapstructure:"default_flow" yaml:"default_flow"`
	ReviewTemplate    string        `mapstructure:"review_template" yaml:"review_template"`
	DeleteConcurrency int           `mapstructure:"delete_concurrency" yaml:"delete_concurrency"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile           string        `mapstructure:"log_file" yaml:"log_file"`
}

// keys lists every config key; each is bound to LISTR_<KEY>.
var keys = []string{
	"api_url",
	"api_token",
	"user",
	"data_dir",
	"snapshot_backend",
	"default_flow",
	"review_template",
	"delete_concurrency",
	"request_timeout",
	"log_level",
	"log_file",
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("listr")

	// api_url has no default - it's required
	v.SetDefault("api_token", "")
	v.SetDefault("user", "")
	v.SetDefault("data_dir", ".listr")
	v.SetDefault("snapshot_backend", BackendNATS)
	v.SetDefault("default_flow", string(flow.Linear))
	v.SetDefault("review_template", "")
	v.SetDefault("delete_concurrency", 4)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("LISTR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better int/duration parsing
	for _, key := range keys {
		if err := v.BindEnv(key, "LISTR_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required values are set and enumerations are known.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required (set via config file, LISTR_API_URL env var, or --api-url flag)")
	}
	switch c.SnapshotBackend {
	case BackendNATS, BackendFile:
	default:
		return fmt.Errorf("snapshot_backend must be %q or %q, got %q", BackendNATS, BackendFile, c.SnapshotBackend)
	}
	f, err := flow.ParseFlow(c.DefaultFlow)
	if err != nil {
		return fmt.Errorf("default_flow: %w", err)
	}
	if f == flow.Edit {
		return fmt.Errorf("default_flow cannot be %q", flow.Edit)
	}
	if c.DeleteConcurrency < 1 {
		return fmt.Errorf("delete_concurrency must be at least 1, got %d", c.DeleteConcurrency)
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/listr/listr.yml or $XDG_CONFIG_HOME/listr/listr.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "listr", "listr.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "listr", "listr.yml")
}

// ProjectPath returns the project-local config path.
// Returns ./listr.yml in the current working directory.
func ProjectPath() string {
	return "listr.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The file may carry an API token
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
