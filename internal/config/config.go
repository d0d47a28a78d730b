package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "coffebuck.yaml"

// Config holds all CoffeBuck configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Limits  LimitsConfig  `yaml:"limits"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	StaticDir       string   `yaml:"static_dir"`
	MaxConnections  int      `yaml:"max_connections"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// AuthConfig configures accounts and tokens.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	TokenTTL   string `yaml:"token_ttl"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// StorageConfig configures the SQLite databases.
type StorageConfig struct {
	// Cart lines (modernc.org/sqlite). Empty keeps carts in memory.
	DatabasePath string `yaml:"database_path"`
	// Accounts (sqlx over mattn/go-sqlite3). Empty keeps accounts in memory.
	UsersPath string `yaml:"users_path"`
	// Audit trail, one JSON event per line. Empty disables it.
	AuditPath string `yaml:"audit_path"`
}

// CatalogConfig locates the menu file.
type CatalogConfig struct {
	// Path to a catalog YAML file. Empty uses the built-in menu.
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "CoffeBuck",
		Version: "1.0.0",

		Server: ServerConfig{
			Host:            "",
			Port:            3000,
			StaticDir:       "public",
			MaxConnections:  256,
			ShutdownTimeout: "10s",
			AllowedOrigins:  []string{"*"},
		},

		LLM: LLMConfig{
			Provider:    ProviderOpenRouter,
			Model:       DefaultOpenRouterModel,
			BaseURL:     DefaultOpenRouterBaseURL,
			Referer:     "http://localhost:3000",
			Title:       "CoffeBuck",
			Timeout:     "60s",
			GeminiModel: DefaultGeminiModel,
		},

		Limits: DefaultLimits(),

		Auth: AuthConfig{
			TokenTTL:   "24h",
			BcryptCost: 10,
		},

		Storage: StorageConfig{
			DatabasePath: "data/coffebuck.db",
			UsersPath:    "data/users.db",
		},

		Catalog: CatalogConfig{
			Watch: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	// Gemini only takes over when there is no OpenRouter key to use.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiAPIKey = key
		if c.LLM.APIKey == "" {
			c.LLM.Provider = ProviderGemini
		}
	}
	if model := os.Getenv("OPENROUTER_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if path := os.Getenv("COFFEBUCK_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if path := os.Getenv("COFFEBUCK_USERS_DB"); path != "" {
		c.Storage.UsersPath = path
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if path := os.Getenv("COFFEBUCK_CATALOG"); path != "" {
		c.Catalog.Path = path
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GetUpstreamTimeout returns the LLM request timeout as a duration.
func (c *Config) GetUpstreamTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown budget as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetTokenTTL returns the session token lifetime as a duration.
func (c *Config) GetTokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validation errors.
var (
	ErrInvalidProvider = errors.New("invalid LLM provider")
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidLimits   = errors.New("invalid limits")
)

// Validate validates the configuration. A missing upstream key is not an
// error; the chat proxy reports it per request.
func (c *Config) Validate() error {
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("%w: %s (valid: %v)", ErrInvalidProvider, c.LLM.Provider, ValidProviders)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
