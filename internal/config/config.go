package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "flatparser"

	// DefaultFetchTimeout bounds a single HTTP request.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultRetries is the number of retries after a failed request.
	DefaultRetries = 2

	// DefaultRate is the request rate per second across all workers.
	DefaultRate = 2.0

	// DefaultBurst is the limiter burst size.
	DefaultBurst = 4

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultHouseDivisor gives house parsers every core.
	DefaultHouseDivisor = 1

	// DefaultLocationDivisor gives location parsers half of the cores.
	DefaultLocationDivisor = 2

	// DefaultFlatDivisor gives listing parsers every core.
	DefaultFlatDivisor = 1
)

// OutputConfig holds the default output path per parser category.
type OutputConfig struct {
	// Flat is used by avito, youla and upn.
	Flat string `yaml:"flat,omitempty"`
	// House is used by domaekb.
	House string `yaml:"house,omitempty"`
	// Location is used by google_maps.
	Location string `yaml:"location,omitempty"`
	// DataMod is used by binarize and clean. When empty the output path is
	// derived from the input path.
	DataMod string `yaml:"data_mod,omitempty"`
}

// WorkersConfig holds the divisors applied to the CPU count per category.
type WorkersConfig struct {
	Flat     int `yaml:"flat,omitempty"`
	House    int `yaml:"house,omitempty"`
	Location int `yaml:"location,omitempty"`
}

// FetchConfig configures the HTTP client shared by all scrapers.
type FetchConfig struct {
	// Timeout bounds one request, retries excluded.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Retries is the number of extra attempts on network errors, 429 and 5xx.
	Retries int `yaml:"retries,omitempty"`

	// Rate is the sustained number of requests per second. Zero disables limiting.
	Rate float64 `yaml:"rate,omitempty"`

	// Burst is the number of requests allowed at once.
	Burst int `yaml:"burst,omitempty"`

	// UserAgent is the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Proxy is an optional proxy URL: socks5://[user:pass@]host:port or
	// http(s)://host:port. A bare host:port is treated as SOCKS5.
	Proxy string `yaml:"proxy,omitempty"`
}

// Config holds all flatparser configuration.
type Config struct {
	Output OutputConfig `yaml:"output,omitempty"`

	// Binarize lists the columns expanded by the binarize command.
	Binarize []string `yaml:"binarize,omitempty"`

	// CleanRules lists the cleaner rules in execution order.
	// Empty selects every rule.
	CleanRules []string `yaml:"clean_rules,omitempty"`

	Workers WorkersConfig `yaml:"workers,omitempty"`

	// TaskTimeout bounds one scraping task. Zero means no limit.
	TaskTimeout time.Duration `yaml:"task_timeout,omitempty"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// Sites overrides the built-in recipes per parser name.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// DBDir is where the run ledger lives. Empty uses XDGDataDir.
	DBDir string `yaml:"db_dir,omitempty"`

	// Verbose enables debug logging. Set from the CLI only.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the configuration was loaded from.
	ConfigFilePath string `yaml:"-"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers: WorkersConfig{
			Flat:     DefaultFlatDivisor,
			House:    DefaultHouseDivisor,
			Location: DefaultLocationDivisor,
		},
		Fetch: FetchConfig{
			Timeout:   DefaultFetchTimeout,
			Retries:   DefaultRetries,
			Rate:      DefaultRate,
			Burst:     DefaultBurst,
			UserAgent: DefaultUserAgent,
		},
		Sites: make(map[string]SiteConfig),
	}
}

// XDGDataDir returns the XDG data directory for flatparser.
// On Linux: ~/.local/share/flatparser
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for flatparser.
// On Linux: ~/.config/flatparser
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabaseDir returns DBDir, or XDGDataDir when it is unset.
func (c *Config) DatabaseDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	divisors := []struct {
		name  string
		value int
	}{
		{"flat", c.Workers.Flat},
		{"house", c.Workers.House},
		{"location", c.Workers.Location},
	}
	for _, d := range divisors {
		if d.value <= 0 {
			return fmt.Errorf("%w: workers.%s = %d", ErrInvalidDivisor, d.name, d.value)
		}
	}

	if c.TaskTimeout < 0 {
		return fmt.Errorf("%w: task_timeout must be non-negative", ErrInvalidTimeout)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%w: fetch.timeout must be positive", ErrInvalidTimeout)
	}
	if c.Fetch.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.Fetch.Rate < 0 {
		return ErrInvalidRate
	}
	if c.Fetch.Rate > 0 && c.Fetch.Burst <= 0 {
		return ErrInvalidBurst
	}

	return nil
}
