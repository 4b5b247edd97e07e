// Package config handles CLI configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/iris-messages/core"
)

// Config represents the CLI configuration file.
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile holds request defaults and credentials for one API endpoint.
type Profile struct {
	Model      string        `yaml:"model"`
	MaxTokens  int           `yaml:"max_tokens,omitempty"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	Version    string        `yaml:"api_version,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`

	// APIKeyRef names a keystore entry holding the API key.
	APIKeyRef string `yaml:"api_key_ref,omitempty"`

	// APIKey is an inline key. It is never written back out.
	APIKey core.Secret `yaml:"api_key,omitempty"`
}

// DefaultMaxTokens is used when neither a flag nor the profile sets one.
const DefaultMaxTokens = 1024

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.iris-messages/config.yaml
// - Windows: %USERPROFILE%\.iris-messages\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".iris-messages", "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// If the file doesn't exist, returns an empty config without error.
// Returns an error only if the file exists but cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Profiles: make(map[string]Profile),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	if cfg.DefaultProfile != "" {
		if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
			return nil, fmt.Errorf("parse %s: default_profile %q is not defined", path, cfg.DefaultProfile)
		}
	}

	return cfg, nil
}

// Profile returns the named profile, or the default profile when name is
// empty. A missing profile yields a zero Profile and false.
func (c *Config) Profile(name string) (Profile, bool) {
	if name == "" {
		name = c.DefaultProfile
	}
	if c.Profiles == nil || name == "" {
		return Profile{}, false
	}
	p, ok := c.Profiles[name]
	return p, ok
}
