// Package config resolves qcm settings from flags, environment, an optional
// YAML file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/qcm/internal/store"
)

// Config holds all configuration for qcm.
type Config struct {
	// APIURL is the assessment backend base URL.
	APIURL string `yaml:"api_url"`

	// IntakeURL is the origin serving the intake form. Defaults to APIURL.
	IntakeURL string `yaml:"intake_url"`

	DBPath   string `yaml:"db"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	FinishFlushTimeout time.Duration `yaml:"finish_flush_timeout"`

	OpenBrowser bool `yaml:"open_browser"`
}

// LoadOptions carries the inputs that sit above the environment.
type LoadOptions struct {
	// File is an explicit YAML config path. When empty the default path is
	// tried and a missing file is not an error.
	File string

	// EnvFile is loaded with godotenv before reading the environment.
	// Existing variables are never overridden.
	EnvFile string

	// Flag overrides; empty values are ignored.
	APIURL string
	DBPath string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:             "http://localhost:8080",
		LogLevel:           "info",
		HTTPTimeout:        15 * time.Second,
		FinishFlushTimeout: 5 * time.Second,
	}
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := loadFile(&cfg, opts.File); err != nil {
		return nil, err
	}

	applyEnv(&cfg)

	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}

	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := DefaultFile()
		if err != nil {
			return nil
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getEnv("QCM_API_URL", cfg.APIURL)
	cfg.IntakeURL = getEnv("QCM_INTAKE_URL", cfg.IntakeURL)
	cfg.DBPath = getEnv("QCM_DB", cfg.DBPath)
	cfg.LogFile = getEnv("QCM_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("QCM_LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPTimeout = getEnvAsDuration("QCM_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.FinishFlushTimeout = getEnvAsDuration("QCM_FINISH_FLUSH_TIMEOUT", cfg.FinishFlushTimeout)
	cfg.OpenBrowser = getEnvAsBool("QCM_OPEN_BROWSER", cfg.OpenBrowser)
}

// fillPaths resolves the journal and log paths when unset.
func (c *Config) fillPaths() error {
	if c.DBPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		c.DBPath = p
	}
	if c.LogFile == "" {
		dir, err := store.DataDir()
		if err != nil {
			return fmt.Errorf("resolve log path: %w", err)
		}
		c.LogFile = filepath.Join(dir, "qcm.log")
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := checkHTTPURL("api_url", c.APIURL); err != nil {
		return err
	}
	if c.IntakeURL != "" {
		if err := checkHTTPURL("intake_url", c.IntakeURL); err != nil {
			return err
		}
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.FinishFlushTimeout < 0 {
		return fmt.Errorf("finish_flush_timeout must not be negative, got %s", c.FinishFlushTimeout)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IntakeBase returns the intake origin, falling back to the API URL.
func (c *Config) IntakeBase() string {
	if c.IntakeURL != "" {
		return c.IntakeURL
	}
	return c.APIURL
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}

func checkHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", name, raw)
	}
	return nil
}

// DefaultFile returns $XDG_CONFIG_HOME/qcm/config.yml, falling back to
// ~/.config/qcm/config.yml.
func DefaultFile() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "qcm", "config.yml"), nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
