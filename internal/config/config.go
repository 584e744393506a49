package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Provider kinds understood by the llm package.
const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

type ProviderConfig struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
}

// ResolvedKind returns the configured kind, falling back to a guess from
// the provider name ("gpt-4" is OpenAI, "gemini-pro" is Gemini).
func (p ProviderConfig) ResolvedKind() string {
	if p.Kind != "" {
		return strings.ToLower(p.Kind)
	}
	name := strings.ToLower(p.Name)
	switch {
	case strings.Contains(name, "gpt"):
		return KindOpenAI
	case strings.Contains(name, "gemini"):
		return KindGemini
	}
	return ""
}

type Config struct {
	Server struct {
		Host              string `json:"host"`
		Port              int    `json:"port"`
		Subpath           string `json:"subpath"`
		SessionSecret     string `json:"session_secret"`
		SessionTTLMinutes int    `json:"session_ttl_minutes"`
		MaxUploadMB       int    `json:"max_upload_mb"`
	} `json:"server"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Database struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	} `json:"database"`
	LLM struct {
		RequestTimeoutSeconds int              `json:"request_timeout_seconds"`
		Providers             []ProviderConfig `json:"providers"`
	} `json:"llm"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
}

// DefaultProviders mirrors the two models offered by the analyzer out of the box.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: "gpt-4", Kind: KindOpenAI, Model: "gpt-4"},
		{Name: "gemini-pro", Kind: KindGemini, Model: "gemini-pro"},
	}
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads the JSON config from disk (singleton). A .env file in the
// working directory is loaded first so its variables can override secrets.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		_ = godotenv.Load()

		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		c, err := Parse(raw)
		if err != nil {
			cfgErr = err
			return
		}
		cfg = c
	})
	return cfg, cfgErr
}

// Parse decodes raw JSON, applies environment overrides and defaults, and
// validates the result.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANALYZER_SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
	if v := os.Getenv("ANALYZER_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ANALYZER_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("ANALYZER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionTTLMinutes <= 0 {
		c.Server.SessionTTLMinutes = 30
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 5
	}
	c.Server.Subpath = strings.TrimRight(c.Server.Subpath, "/")
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	c.applyLLMDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyLLMDefaults() {
	if c.LLM.RequestTimeoutSeconds <= 0 {
		c.LLM.RequestTimeoutSeconds = 120
	}
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = DefaultProviders()
	}
	for i := range c.LLM.Providers {
		if c.LLM.Providers[i].Model == "" {
			c.LLM.Providers[i].Model = c.LLM.Providers[i].Name
		}
	}
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.SessionSecret == "" {
		return errors.New("session_secret must be set in config or ANALYZER_SESSION_SECRET")
	}
	if c.Server.Subpath != "" && !strings.HasPrefix(c.Server.Subpath, "/") {
		return fmt.Errorf("subpath %q must start with '/'", c.Server.Subpath)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return c.validateProviders()
}

func (c *Config) validateProviders() error {
	seen := make(map[string]bool, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		if p.Name == "" {
			return errors.New("provider name must not be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
		switch p.ResolvedKind() {
		case KindOpenAI, KindGemini:
		default:
			return fmt.Errorf("unsupported model: %s", p.Name)
		}
	}
	return nil
}

// LoadLLMConfig reads only the llm section of the config file, for commands
// that call providers without serving HTTP. Server settings are neither
// defaulted nor required, and the singleton is left untouched.
func LoadLLMConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	c.applyLLMDefaults()
	if err := c.validateProviders(); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
