package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the working
// and home directories.
const DefaultConfigFile = ".flatparser"

// Environment variables overriding file values.
const (
	EnvProxy     = "FLATPARSER_PROXY"
	EnvUserAgent = "FLATPARSER_USER_AGENT"
	EnvDBDir     = "FLATPARSER_DB_DIR"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a YAML file over the defaults from NewConfig.
// Keys absent from the file keep their defaults.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.Sites == nil {
		cfg.Sites = make(map[string]SiteConfig)
	}
	cfg.ConfigFilePath = path

	return cfg, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .flatparser in the current directory
//  3. config.yaml in the XDG config directory
//  4. .flatparser in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load finds and reads the configuration file. A missing file is not an
// error unless configPath was given explicitly; the defaults are returned.
func Load(configPath string) (*Config, error) {
	path := FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return NewConfig(), nil
	}
	return LoadConfigFile(path)
}

// ApplyEnv overrides file values with FLATPARSER_* variables read through
// getenv, which is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvProxy)); v != "" {
		c.Fetch.Proxy = v
	}
	if v := strings.TrimSpace(getenv(EnvUserAgent)); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := strings.TrimSpace(getenv(EnvDBDir)); v != "" {
		c.DBDir = v
	}
}
