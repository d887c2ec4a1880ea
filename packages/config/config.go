package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendKind selects which HTTP backend implementation requests go through.
type BackendKind string

const (
	// BackendPooled uses a shared keep-alive connection pool. Default.
	BackendPooled BackendKind = "pooled"
	// BackendEphemeral opens a fresh connection per request.
	BackendEphemeral BackendKind = "ephemeral"
	// BackendRaw dials TCP and speaks HTTP/1.1 directly.
	BackendRaw BackendKind = "raw"
)

// Config is the paywire client configuration.
type Config struct {
	// BaseURL is the API origin requests are resolved against. Live.
	BaseURL string `yaml:"baseUrl" json:"baseUrl"`

	// APIKey is sent as a bearer token on every request. Live.
	APIKey string `yaml:"apiKey" json:"apiKey"`

	// Proxy is the HTTP proxy URL, empty for direct connections. Backends
	// capture this value at construction time and keep it for their whole
	// life; see the stale-proxy warning in packages/httpclient.
	Proxy string `yaml:"proxy" json:"proxy"`

	// Backend names the HTTP backend implementation. Live.
	Backend BackendKind `yaml:"backend" json:"backend"`

	// MaxRetries bounds connection-error retries in the API layer. Live.
	// Backends themselves never retry.
	MaxRetries int `yaml:"maxRetries" json:"maxRetries"`

	// Timeout is the per-request timeout in milliseconds. Live.
	Timeout int `yaml:"timeout" json:"timeout"`
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPooled, BackendEphemeral, BackendRaw:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %d", c.Timeout)
	}
	return nil
}

// ConfigFilenames contains the config file names searched by Load when no
// explicit path is given, in priority order.
var ConfigFilenames = []string{
	"paywire.yaml",
	"paywire.yml",
	"paywire.json",
	".paywirerc.json",
}

// Load reads configuration from the given path, or searches the current
// directory for a known config file when path is empty. Values not present in
// the file keep their defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches dir for a config file and loads the first one found.
// Returns defaults when no file exists.
func FindAndLoad(dir string) (*Config, error) {
	for _, name := range ConfigFilenames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays PAYWIRE_* environment variables onto c.
// Recognized: PAYWIRE_BASE_URL, PAYWIRE_API_KEY, PAYWIRE_PROXY,
// PAYWIRE_BACKEND, PAYWIRE_MAX_RETRIES, PAYWIRE_TIMEOUT.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PAYWIRE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("PAYWIRE_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("PAYWIRE_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("PAYWIRE_BACKEND"); v != "" {
		c.Backend = BackendKind(v)
	}
	if v := os.Getenv("PAYWIRE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("PAYWIRE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeout = n
		}
	}
}
