// Package config loads and validates the companion's runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks configuration problems that must abort startup.
// The companion refuses to initialize without a working backend rather than
// run degraded.
var ErrConfiguration = errors.New("config: invalid configuration")

// Supported providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the declarative runtime definition.
type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
	MemoryDir string `yaml:"memory_dir"`
	Listen    string `yaml:"listen"`

	// PolicyFile optionally replaces the built-in behavioral policy with the
	// file's contents.
	PolicyFile string `yaml:"policy_file"`

	// resolvedKey is populated by Validate from the environment and never
	// serialized.
	resolvedKey string
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Provider:  ProviderGemini,
		Model:     "gemini-1.5-pro",
		APIKeyEnv: "GEMINI_API_KEY",
		MaxTokens: 4096,
		MemoryDir: defaultMemoryDir(),
		Listen:    ":8700",
	}
}

// Load reads a YAML config file, falling back to defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize trims whitespace and expands the memory directory.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Model = strings.TrimSpace(c.Model)
	c.APIKeyEnv = strings.TrimSpace(c.APIKeyEnv)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Listen = strings.TrimSpace(c.Listen)
	if c.MemoryDir != "" {
		c.MemoryDir = filepath.Clean(expandHome(c.MemoryDir))
	}
	if c.PolicyFile != "" {
		c.PolicyFile = filepath.Clean(expandHome(c.PolicyFile))
	}
}

// Policy returns the override policy text from PolicyFile, or "" when no
// override is configured.
func (c *Config) Policy() (string, error) {
	if c.PolicyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return "", fmt.Errorf("config: read policy file: %w", err)
	}
	policy := strings.TrimSpace(string(data))
	if policy == "" {
		return "", fmt.Errorf("%w: policy file %s is empty", ErrConfiguration, c.PolicyFile)
	}
	return policy, nil
}

// Validate checks the configuration and resolves credentials from the
// environment. Any failure here is fatal at startup only.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI:
	case "":
		return fmt.Errorf("%w: provider is required", ErrConfiguration)
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfiguration, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrConfiguration)
	}
	if c.APIKeyEnv == "" {
		return fmt.Errorf("%w: api_key_env is required", ErrConfiguration)
	}
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return fmt.Errorf("%w: %s is not set", ErrConfiguration, c.APIKeyEnv)
	}
	c.resolvedKey = key
	if c.MemoryDir == "" {
		return fmt.Errorf("%w: memory_dir is required", ErrConfiguration)
	}
	return nil
}

// APIKey returns the credential resolved by Validate.
func (c *Config) APIKey() string { return c.resolvedKey }

func defaultMemoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lumora/memory"
	}
	return filepath.Join(home, ".lumora", "memory")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
