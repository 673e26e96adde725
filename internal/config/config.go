// Package config loads and validates the TOML configuration and exposes
// an atomically swappable snapshot to the rest of the process. The
// backend catalog inside a snapshot is immutable; request handlers work
// on per-request copies of selection inputs, never on the snapshot.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8000
	DefaultRequestTimeout = 90
	DefaultContextTokens  = 128000
)

// Provider holds upstream credentials and endpoint information for one
// provider token. A non-empty APIVersion selects the Azure-style
// deployment endpoint layout.
type Provider struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	APIVersion string `toml:"api_version"`
}

// Backend describes one entry of the ordered backend catalog.
type Backend struct {
	Model      string            `toml:"model"`
	Context    int               `toml:"context"`
	Vision     bool              `toml:"vision"`
	Thinking   bool              `toml:"thinking"`
	ModelMatch []string          `toml:"model_match"`
	KeyAdd     map[string]any    `toml:"key_add"`
	KeyDelete  []string          `toml:"key_delete"`
	KeyRename  map[string]string `toml:"key_rename"`

	// Rate-limit hints; parsed and surfaced, not enforced.
	MaxPerDay  int `toml:"max_per_day"`
	MaxPerHour int `toml:"max_per_hour"`
	MaxPer5h   int `toml:"max_per_5h"`
}

// Provider returns the provider token: everything before the first
// colon of the model field.
func (b Backend) Provider() string {
	provider, _, _ := strings.Cut(b.Model, ":")
	return provider
}

// ModelID returns the model id: the full remainder after the first
// colon, which may itself contain colons.
func (b Backend) ModelID() string {
	_, modelID, _ := strings.Cut(b.Model, ":")
	return modelID
}

// ContextLimit returns the maximum input tokens this backend accepts.
func (b Backend) ContextLimit() int {
	if b.Context > 0 {
		return b.Context
	}

	return DefaultContextTokens
}

type Config struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	LogLevel       string `toml:"log_level"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxRetries     int    `toml:"max_retries"`

	// "ignore", "request", or a positive integer.
	MaxTokensLimit any `toml:"max_tokens_limit"`
	// "ignore" or a positive integer.
	MinTokensLimit any `toml:"min_tokens_limit"`

	HTTPSEnabled bool   `toml:"https_enabled"`
	SSLKeyFile   string `toml:"ssl_key_file"`
	SSLCertFile  string `toml:"ssl_cert_file"`
	SSLCAFile    string `toml:"ssl_ca_file"`

	// Client tokens by name; empty table disables authentication.
	Tokens map[string]string `toml:"tokens"`

	Providers map[string]Provider `toml:"provider"`
	Backends  []Backend           `toml:"backend"`
}

// Primary returns the first catalog entry, the default dispatch target.
func (c *Config) Primary() Backend {
	if len(c.Backends) == 0 {
		return Backend{}
	}

	return c.Backends[0]
}

// FailoverList returns the catalog entries after the primary. Each
// request's failover chain is this list minus the backend selected as
// that request's primary; failover is active iff that chain is
// non-empty.
func (c *Config) FailoverList() []Backend {
	if len(c.Backends) < 2 {
		return nil
	}

	return c.Backends[1:]
}

// TokenAllowed reports whether token appears as a value in the token
// table. An empty table allows everything.
func (c *Config) TokenAllowed(token string) bool {
	if len(c.Tokens) == 0 {
		return true
	}

	for _, t := range c.Tokens {
		if t != "" && t == token {
			return true
		}
	}

	return false
}

// Parse decodes, defaults, and validates a TOML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// API keys may reference environment variables.
	for name, provider := range cfg.Providers {
		provider.APIKey = os.ExpandEnv(provider.APIKey)
		cfg.Providers[name] = provider
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("config: at least one [[backend]] is required")
	}

	for i, backend := range c.Backends {
		if !strings.Contains(backend.Model, ":") {
			return fmt.Errorf("config: backend %d model %q must be of the form provider:model-id", i, backend.Model)
		}

		provider := backend.Provider()
		if _, ok := c.Providers[provider]; !ok {
			return fmt.Errorf("config: backend %d references unknown provider %q", i, provider)
		}
	}

	for name, provider := range c.Providers {
		if provider.BaseURL == "" {
			return fmt.Errorf("config: provider %q has no base_url", name)
		}
	}

	return nil
}

// Manager owns the current configuration snapshot.
type Manager struct {
	configPath  string
	configValue atomic.Value
}

func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Load reads and parses the config file and installs it as the current
// snapshot.
func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	m.configValue.Store(cfg)

	return cfg, nil
}

// Get returns the current snapshot, loading it on first use.
func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		return &Config{
			Host:           DefaultHost,
			Port:           DefaultPort,
			RequestTimeout: DefaultRequestTimeout,
		}
	}

	return cfg
}

// GetPath returns the config file path backing this manager.
func (m *Manager) GetPath() string {
	return m.configPath
}

// Exists reports whether the config file is present on disk.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}
