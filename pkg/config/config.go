package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment override
const EnvPrefix = "BUTTERFLIY_"

// Config holds all configuration options for the Butterfliy client
type Config struct {
	// API endpoint settings
	API APIConfig `yaml:"api" json:"api"`

	// Retry behaviour for transient failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Client-side rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Token storage
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// APIConfig describes how to reach the REST API
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
	// RetryUnsafe allows non-idempotent requests (POST) to be retried
	RetryUnsafe bool `yaml:"retry_unsafe" json:"retry_unsafe"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size" json:"burst_size"`
}

// AuthConfig selects where access tokens are kept
type AuthConfig struct {
	Profile        string `yaml:"profile" json:"profile"`
	UseKeyring     bool   `yaml:"use_keyring" json:"use_keyring"`
	CredentialFile string `yaml:"credential_file" json:"credential_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "http://localhost:3000",
			Timeout:     30 * time.Second,
			UserAgent:   "butterfliy-cli/1.0",
			Concurrency: 4,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxRetries:   2,
			InitialDelay: time.Second,
			MaxDelay:     0, // 0 means uncapped
			JitterFactor: 0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			BurstSize:         10,
		},
		Auth: AuthConfig{
			Profile:        "default",
			UseKeyring:     true,
			CredentialFile: filepath.Join(configHome(), "butterfliy", "tokens.enc"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}

func configHome() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

// LoadFromEnv applies BUTTERFLIY_* environment overrides
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := env("API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := env("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.API.Timeout = d
		}
	}
	if v := env("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxRetries = n
		}
	}
	if v := env("INITIAL_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINITIAL_DELAY: %w", EnvPrefix, err))
		} else {
			c.Retry.InitialDelay = d
		}
	}
	if v := env("RETRY_ENABLED"); v != "" {
		c.Retry.Enabled = strings.ToLower(v) == "true"
	}
	if v := env("REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := env("PROFILE"); v != "" {
		c.Auth.Profile = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := env("METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = v
	}

	return errors.Join(errs...)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".butterfliy.yaml",
		".butterfliy.yml",
		filepath.Join(configHome(), "butterfliy", "config.yaml"),
		filepath.Join(home, ".butterfliy.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api base url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.API.Concurrency <= 0 {
		errs = append(errs, errors.New("api concurrency must be positive"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.InitialDelay <= 0 {
		errs = append(errs, errors.New("initial delay must be positive"))
	}
	if c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("max delay cannot be negative"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, errors.New("requests per minute must be positive"))
		}
		if c.RateLimit.BurstSize <= 0 {
			errs = append(errs, errors.New("burst size must be positive"))
		}
	}

	if c.Auth.Profile == "" {
		errs = append(errs, errors.New("auth profile is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Retry.MaxRetries = maxRetries
	}
	if delay, ok := flags["initial-delay"].(time.Duration); ok && delay > 0 {
		c.Retry.InitialDelay = delay
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.API.Concurrency = concurrency
	}
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.Auth.Profile = profile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = addr
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".butterfliy.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
