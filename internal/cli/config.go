package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const defaultConcurrency = 8

// Config represents the CLI configuration
type Config struct {
	BaseURL     string `yaml:"base_url"` // Match server; empty evaluates locally
	Format      string `yaml:"format"`
	Concurrency int    `yaml:"concurrency"` // Cases evaluated in parallel by "run"
}

func defaultConfig() *Config {
	return &Config{
		Format:      string(FormatTable),
		Concurrency: defaultConcurrency,
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".flagprops", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if file doesn't exist
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveBaseURL returns the match server to talk to.
// Priority: command flag > FLAGPROPS_BASE_URL > config file.
// An empty result means evaluate locally.
func ResolveBaseURL(flagValue string, cfg *Config) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("FLAGPROPS_BASE_URL"); env != "" {
		return env
	}
	if cfg != nil {
		return cfg.BaseURL
	}
	return ""
}

// InitConfig creates a default config file
func InitConfig() error {
	return SaveConfig(defaultConfig())
}

// Get returns a configuration value by its file key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "base_url":
		return c.BaseURL, nil
	case "format":
		return c.Format, nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	default:
		return "", fmt.Errorf("unknown key '%s', valid keys: base_url, format, concurrency", key)
	}
}

// Set updates a configuration value by its file key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_url":
		c.BaseURL = value
	case "format":
		switch OutputFormat(value) {
		case FormatTable, FormatJSON, FormatYAML:
			c.Format = value
		default:
			return fmt.Errorf("unsupported format: %s", value)
		}
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("concurrency must be a positive integer, got %q", value)
		}
		c.Concurrency = n
	default:
		return fmt.Errorf("unknown key '%s', valid keys: base_url, format, concurrency", key)
	}
	return nil
}
