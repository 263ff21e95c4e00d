// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// Defaults used when neither the config file, the environment nor a flag
// provides a value.
const (
	DefaultPort          = 8080
	DefaultLocale        = "en"
	DefaultFetchTimeout  = 15
	DefaultRenderWorkers = 4
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	RedisURL    string `json:"redis_url,omitempty"`    // Redis URL for the photo cache

	// Server
	Port         int    `json:"port,omitempty"`          // HTTP listen port
	PublicDomain string `json:"public_domain,omitempty"` // Domain under which published CVs are served

	// Rendering
	ImageProxyURL       string `json:"image_proxy_url,omitempty"`       // Photo proxy endpoint
	DefaultLocale       string `json:"default_locale,omitempty"`        // Locale used when a request names none
	ChromePath          string `json:"chrome_path,omitempty"`           // Chrome binary for preview screenshots
	EnableScreenshots   bool   `json:"enable_screenshots,omitempty"`    // Serve preview.png
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds,omitempty"` // Timeout per photo fetch
	RenderWorkers       int    `json:"render_workers,omitempty"`        // Concurrent files in batch rendering

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the configuration from environment variables. Unset
// variables leave the field empty.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		PublicDomain:  os.Getenv("PUBLIC_DOMAIN"),
		ImageProxyURL: os.Getenv("IMAGE_PROXY_URL"),
		DefaultLocale: os.Getenv("DEFAULT_LOCALE"),
		ChromePath:    os.Getenv("CHROME_PATH"),
	}
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Port = port
	}
	if timeout, err := strconv.Atoi(os.Getenv("FETCH_TIMEOUT_SECONDS")); err == nil {
		cfg.FetchTimeoutSeconds = timeout
	}
	if enabled, err := strconv.ParseBool(os.Getenv("ENABLE_SCREENSHOTS")); err == nil {
		cfg.EnableScreenshots = enabled
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'fetch_timeout_seconds' must be non-negative")
	}
	if c.RenderWorkers < 0 {
		return fmt.Errorf("config error: 'render_workers' must be non-negative")
	}

	if c.ImageProxyURL != "" {
		u, err := url.Parse(c.ImageProxyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config error: 'image_proxy_url' must be an absolute http(s) URL")
		}
	}

	if c.DefaultLocale != "" {
		if _, err := language.Parse(c.DefaultLocale); err != nil {
			return fmt.Errorf("config error: invalid 'default_locale' %q: %w", c.DefaultLocale, err)
		}
	}

	// Validate file paths exist (if specified)
	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.PublicDomain == "" {
		result.PublicDomain = defaults.PublicDomain
	}
	if result.ImageProxyURL == "" {
		result.ImageProxyURL = defaults.ImageProxyURL
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.DefaultLocale == "" {
		if defaults.DefaultLocale != "" {
			result.DefaultLocale = defaults.DefaultLocale
		} else {
			result.DefaultLocale = DefaultLocale
		}
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		if defaults.Port > 0 {
			result.Port = defaults.Port
		} else {
			result.Port = DefaultPort
		}
	}
	if result.FetchTimeoutSeconds == 0 {
		if defaults.FetchTimeoutSeconds > 0 {
			result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
		} else {
			result.FetchTimeoutSeconds = DefaultFetchTimeout
		}
	}
	if result.RenderWorkers == 0 {
		if defaults.RenderWorkers > 0 {
			result.RenderWorkers = defaults.RenderWorkers
		} else {
			result.RenderWorkers = DefaultRenderWorkers
		}
	}

	// Bool fields: cannot distinguish unset from false, so only true wins
	result.EnableScreenshots = result.EnableScreenshots || defaults.EnableScreenshots
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// FetchTimeout returns the per-request photo fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutSeconds <= 0 {
		return DefaultFetchTimeout * time.Second
	}
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf(":%d", port)
}
