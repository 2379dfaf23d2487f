package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// BaseOrigin is the remote board store's API origin, including the
	// version suffix, e.g. "https://host/api/v1".
	BaseOrigin string `yaml:"base_origin"`

	// TokenPath points at the file holding the current bearer token.
	TokenPath string `yaml:"token_path"`

	// CachePath is the sqlite file mirroring the last known column layout.
	CachePath string `yaml:"cache_path"`

	// RequestTimeoutMS bounds every remote store call.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`

	// MaxUploadBytes caps inline image encoding and attachment uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// NotifySocket, when set, is the Unix socket on which board
	// notifications are relayed to local subscribers. Empty disables
	// the broker and notifications go to the log instead.
	NotifySocket string `yaml:"notify_socket"`
}

// RequestTimeout returns the remote call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Load loads config from the user's config directory.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		config := &Config{}
		config.applyDefaults()
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := &Config{}
		config.applyDefaults()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	return &config, nil
}

// Save saves the config to the user's config directory.
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}

// getConfigPath returns the path to the config file.
// TAVLE_CONFIG_FILE overrides the XDG lookup entirely.
func getConfigPath() (string, error) {
	if override := os.Getenv("TAVLE_CONFIG_FILE"); override != "" {
		return override, nil
	}

	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "tavle", "config.yaml"), nil
	}

	// Fall back to ~/.config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "tavle", "config.yaml"), nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.BaseOrigin == "" {
		c.BaseOrigin = "http://localhost:8080/api/v1"
	}
	if c.TokenPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.TokenPath = filepath.Join(home, ".tavle", "token")
		}
	}
	if c.CachePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CachePath = filepath.Join(home, ".tavle", "layout.db")
		}
	}
	if c.RequestTimeoutMS <= 0 {
		c.RequestTimeoutMS = 10000
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 5 * 1024 * 1024
	}
}
