package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chartfetch/pkg/bundle"
	"chartfetch/pkg/logger"
)

// Config holds all configuration options for the scanner pipeline
type Config struct {
	// Remote API settings
	Drive DriveConfig `yaml:"drive" json:"drive"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Archive extraction settings
	Extract ExtractConfig `yaml:"extract" json:"extract"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Roots to scan
	Roots []bundle.Root `yaml:"roots" json:"roots"`
}

// DriveConfig holds remote API configuration
type DriveConfig struct {
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds the concurrency and dispatch pacing limits
type RateLimitConfig struct {
	MaxInFlight     int           `yaml:"max_in_flight" json:"max_in_flight"`
	DispatchSpacing time.Duration `yaml:"dispatch_spacing" json:"dispatch_spacing"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	// MaxFileSize bounds individual candidate files; 0 means no limit.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ExtractConfig holds archive extraction configuration
type ExtractConfig struct {
	// Extractor is the external executable invoked as
	// `extractor <archive> <dest>`.
	Extractor string `yaml:"extractor" json:"extractor"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			RequestTimeout: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			MaxInFlight:     3,
			DispatchSpacing: 250 * time.Millisecond,
		},
		Download: DownloadConfig{
			MaxFileSize: 0, // 0 means no limit
		},
		Output: OutputConfig{
			BaseDirectory: "./charts",
		},
		Extract: ExtractConfig{
			Extractor: "7z-extract",
		},
		Logging: logger.Config{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("CHARTFETCH_DRIVE_BASE_URL"); baseURL != "" {
		c.Drive.BaseURL = baseURL
	}

	if inFlight := os.Getenv("CHARTFETCH_MAX_IN_FLIGHT"); inFlight != "" {
		var val int
		fmt.Sscanf(inFlight, "%d", &val)
		if val > 0 {
			c.RateLimit.MaxInFlight = val
		}
	}
	if spacing := os.Getenv("CHARTFETCH_DISPATCH_SPACING"); spacing != "" {
		if d, err := time.ParseDuration(spacing); err == nil && d >= 0 {
			c.RateLimit.DispatchSpacing = d
		}
	}

	if maxSize := os.Getenv("CHARTFETCH_MAX_FILE_SIZE"); maxSize != "" {
		var val int64
		fmt.Sscanf(maxSize, "%d", &val)
		if val >= 0 {
			c.Download.MaxFileSize = val
		}
	}

	if outputDir := os.Getenv("CHARTFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if extractor := os.Getenv("CHARTFETCH_EXTRACTOR"); extractor != "" {
		c.Extract.Extractor = extractor
	}

	if logLevel := os.Getenv("CHARTFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".chartfetch.yaml",
		".chartfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "chartfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "chartfetch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".chartfetch.yaml"),
		filepath.Join(os.Getenv("HOME"), ".chartfetch.yml"),
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

	if c.Drive.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.MaxInFlight <= 0 {
		errs = append(errs, errors.New("max in-flight calls must be positive"))
	}
	if c.RateLimit.MaxInFlight > 10 {
		errs = append(errs, errors.New("max in-flight calls should not exceed 10"))
	}
	if c.RateLimit.DispatchSpacing < 0 {
		errs = append(errs, errors.New("dispatch spacing cannot be negative"))
	}

	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Extract.Extractor == "" {
		errs = append(errs, errors.New("extractor executable is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	seen := make(map[string]bool, len(c.Roots))
	for i, r := range c.Roots {
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("root %d: id is required", i))
			continue
		}
		if r.Owner == "" {
			errs = append(errs, fmt.Errorf("root %s: owner label is required", r.ID))
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("root %s: duplicate id", r.ID))
		}
		seen[r.ID] = true
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if extractor, ok := flags["extractor"].(string); ok && extractor != "" {
		c.Extract.Extractor = extractor
	}
	if maxSize, ok := flags["max-file-size"].(int64); ok && maxSize > 0 {
		c.Download.MaxFileSize = maxSize
	}
	if inFlight, ok := flags["max-in-flight"].(int); ok && inFlight > 0 {
		c.RateLimit.MaxInFlight = inFlight
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if roots, ok := flags["roots"].([]bundle.Root); ok && len(roots) > 0 {
		c.Roots = append(c.Roots, roots...)
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".chartfetch.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
