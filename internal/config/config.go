// Package config loads ariasnap settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvSessionID names the environment variable holding the session id.
const EnvSessionID = "ARIASNAP_SESSION_ID"

// Config is the top-level configuration.
type Config struct {
	SessionID string        `yaml:"session_id"`
	LogLevel  string        `yaml:"log_level"`
	Server    ServerConfig  `yaml:"server"`
	Browser   BrowserConfig `yaml:"browser"`
	Wait      WaitConfig    `yaml:"wait"`
}

// ServerConfig locates the session server, and configures it for serve.
type ServerConfig struct {
	URL         string        `yaml:"url"`
	Listen      string        `yaml:"listen"`
	DB          string        `yaml:"db"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// BrowserConfig controls the Chrome the server drives.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headful          bool          `yaml:"headful"`
	Stealth          bool          `yaml:"stealth"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// WaitConfig holds the defaults of the wait-* commands.
type WaitConfig struct {
	SelectorTimeout time.Duration `yaml:"selector_timeout"`
	URLTimeout      time.Duration `yaml:"url_timeout"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file. A missing file is not an
// error when optional is set; the defaults are returned instead.
func LoadFile(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv fills unset fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.SessionID == "" {
		c.SessionID = getenv(EnvSessionID)
	}
	if v := getenv("ARIASNAP_SERVER"); v != "" && c.Server.URL == defaultServerURL {
		c.Server.URL = v
	}
	if v := getenv("ARIASNAP_LOG_LEVEL"); v != "" && c.LogLevel == defaultLogLevel {
		c.LogLevel = v
	}
}

const (
	defaultServerURL = "http://localhost:9222"
	defaultLogLevel  = "warn"
)

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Server.URL == "" {
		c.Server.URL = defaultServerURL
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:9222"
	}
	if c.Server.DB == "" {
		c.Server.DB = "ariasnap-sessions.db"
	}
	if c.Server.HTTPTimeout <= 0 {
		c.Server.HTTPTimeout = 10 * time.Second
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Wait.SelectorTimeout <= 0 {
		c.Wait.SelectorTimeout = 30 * time.Second
	}
	if c.Wait.URLTimeout <= 0 {
		c.Wait.URLTimeout = 30 * time.Second
	}
	if c.Wait.LoadTimeout <= 0 {
		c.Wait.LoadTimeout = 10 * time.Second
	}
}

// Level parses LogLevel; unknown values mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
