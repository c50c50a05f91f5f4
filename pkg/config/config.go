package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for igdl
type Config struct {
	// Instagram login and endpoint selection
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry policy shared by login, page fetches and file fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// Fetcher selects the page fetcher family: "feed" or "graphql"
	Fetcher  string `yaml:"fetcher" json:"fetcher"`
	PageSize int    `yaml:"page_size" json:"page_size"`
	// QueryHash overrides the timeline query hash of the graphql fetcher
	QueryHash string `yaml:"query_hash,omitempty" json:"query_hash,omitempty"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	OutputDir   string        `yaml:"output_dir" json:"output_dir"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// MaxPosts caps a profile download; nil downloads everything and 0
	// downloads nothing
	MaxPosts  *int          `yaml:"max_posts,omitempty" json:"max_posts,omitempty"`
	JitterMin time.Duration `yaml:"jitter_min" json:"jitter_min"`
	JitterMax time.Duration `yaml:"jitter_max" json:"jitter_max"`
}

// PostLimit returns the profile item limit, negative when there is none
func (d DownloadConfig) PostLimit() int {
	if d.MaxPosts == nil {
		return -1
	}
	return *d.MaxPosts
}

// RetryConfig holds the retry-with-backoff policy
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay" json:"max_delay"`
	Jitter         time.Duration `yaml:"jitter" json:"jitter"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" json:"rate_limit_delay"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	PageDelayMin      time.Duration `yaml:"page_delay_min" json:"page_delay_min"`
	PageDelayMax      time.Duration `yaml:"page_delay_max" json:"page_delay_max"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Fetcher:   "feed",
		},
		Download: DownloadConfig{
			OutputDir:   "downloads",
			Concurrency: 3,
			Timeout:     30 * time.Second,
			JitterMin:   500 * time.Millisecond,
			JitterMax:   time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelay:      time.Second,
			MaxDelay:       30 * time.Second,
			Jitter:         500 * time.Millisecond,
			RateLimitDelay: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			PageDelayMin:      500 * time.Millisecond,
			PageDelayMax:      2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from IGDL_* environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("IGDL_USERNAME"); v != "" {
		c.Instagram.Username = v
	}
	if v := os.Getenv("IGDL_PASSWORD"); v != "" {
		c.Instagram.Password = v
	}
	if v := os.Getenv("IGDL_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("IGDL_FETCHER"); v != "" {
		c.Instagram.Fetcher = v
	}
	if v := os.Getenv("IGDL_QUERY_HASH"); v != "" {
		c.Instagram.QueryHash = v
	}
	if v := os.Getenv("IGDL_OUTPUT_DIR"); v != "" {
		c.Download.OutputDir = v
	}
	if v := os.Getenv("IGDL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	var errs []error
	intVars := map[string]*int{
		"IGDL_CONCURRENCY":         &c.Download.Concurrency,
		"IGDL_MAX_ATTEMPTS":        &c.Retry.MaxAttempts,
		"IGDL_REQUESTS_PER_MINUTE": &c.RateLimit.RequestsPerMinute,
	}
	for name, target := range intVars {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*target = val
	}

	if raw := os.Getenv("IGDL_MAX_POSTS"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGDL_MAX_POSTS: %w", err))
		} else {
			c.Download.MaxPosts = &val
		}
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
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

// DefaultPath returns the per-user configuration file location
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "igdl", "config.yaml")
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".igdl.yaml",
		".igdl.yml",
		DefaultPath(),
		filepath.Join(home, ".igdl.yaml"),
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

	switch c.Instagram.Fetcher {
	case "feed", "graphql":
	default:
		errs = append(errs, fmt.Errorf("unknown fetcher %q (want feed or graphql)", c.Instagram.Fetcher))
	}
	if c.Instagram.PageSize < 0 || c.Instagram.PageSize > 50 {
		errs = append(errs, errors.New("page size must be between 0 and 50"))
	}
	if h := c.Instagram.QueryHash; h != "" {
		if _, err := hex.DecodeString(h); err != nil || len(h) != 32 {
			errs = append(errs, fmt.Errorf("query hash %q must be 32 hex characters", h))
		}
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.Download.Concurrency > 10 {
		errs = append(errs, errors.New("concurrency should not exceed 10"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxPosts != nil && *c.Download.MaxPosts < 0 {
		errs = append(errs, errors.New("max posts cannot be negative"))
	}
	if c.Download.JitterMax < c.Download.JitterMin {
		errs = append(errs, errors.New("download jitter max must not be below min"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry max delay must not be below base delay"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.PageDelayMax < c.RateLimit.PageDelayMin {
		errs = append(errs, errors.New("page delay max must not be below min"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges explicitly set command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["username"].(string); ok && v != "" {
		c.Instagram.Username = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Instagram.Password = v
	}
	if v, ok := flags["fetcher"].(string); ok && v != "" {
		c.Instagram.Fetcher = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Download.OutputDir = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Download.Concurrency = v
	}
	if v, ok := flags["max-posts"].(int); ok {
		c.Download.MaxPosts = &v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	home, _ := os.UserHomeDir()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".igdl.env"))

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
