// Package config has the configuration for the drug lookup batch
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the batch runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

const (
	DefaultFDABaseURL  = "https://api.fda.gov/drug/ndc.json"
	DefaultSeerBaseURL = "https://api.seer.cancer.gov"
	DefaultRxVersion   = "latest"
)

// Config holds all application configuration
type Config struct {
	FDAAPIKey     string
	SeerAPIKey    string
	FDABaseURL    string
	SeerBaseURL   string
	SeerRxVersion string
	HTTPTimeout   time.Duration
	FDARateLimit  int // Requests per second, 0 disables throttling
	SeerRateLimit int // Requests per second, 0 disables throttling

	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MetricsFile       string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	timeout, err := getDurationEnvWithDefault("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		FDAAPIKey:         strings.TrimSpace(os.Getenv("FDA_API_KEY")),
		SeerAPIKey:        strings.TrimSpace(os.Getenv("SEER_API_KEY")),
		FDABaseURL:        getEnvWithDefault("FDA_BASE_URL", DefaultFDABaseURL),
		SeerBaseURL:       getEnvWithDefault("SEER_BASE_URL", DefaultSeerBaseURL),
		SeerRxVersion:     getEnvWithDefault("SEER_RX_VERSION", DefaultRxVersion),
		HTTPTimeout:       timeout,
		FDARateLimit:      getIntEnvWithDefault("FDA_RATE_LIMIT", 4),
		SeerRateLimit:     getIntEnvWithDefault("SEER_RATE_LIMIT", 5),
		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", string(EnvDevelopment)))),
		LogLevel:          strings.ToLower(os.Getenv("LOG_LEVEL")), // empty picks the environment default
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MetricsFile:       os.Getenv("METRICS_FILE"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateCredential(cfg.FDAAPIKey, "FDA_API_KEY"); err != nil {
		return err
	}
	if err := validateCredential(cfg.SeerAPIKey, "SEER_API_KEY"); err != nil {
		return err
	}

	if err := validateBaseURL(cfg.FDABaseURL); err != nil {
		return fmt.Errorf("invalid FDA_BASE_URL: %w", err)
	}
	if err := validateBaseURL(cfg.SeerBaseURL); err != nil {
		return fmt.Errorf("invalid SEER_BASE_URL: %w", err)
	}

	if err := validateRxVersion(cfg.SeerRxVersion); err != nil {
		return fmt.Errorf("invalid SEER_RX_VERSION: %w", err)
	}

	if err := validateTimeout(cfg.HTTPTimeout); err != nil {
		return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	if err := validateRateLimit(cfg.FDARateLimit, "FDA_RATE_LIMIT"); err != nil {
		return err
	}
	if err := validateRateLimit(cfg.SeerRateLimit, "SEER_RATE_LIMIT"); err != nil {
		return err
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	return nil
}

// validateCredential makes a missing API key a fatal configuration error
func validateCredential(value, name string) error {
	if value == "" {
		return fmt.Errorf("missing required credential %s", name)
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("could not parse %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty in %q", raw)
	}
	return nil
}

func validateRxVersion(version string) error {
	if version == "" {
		return fmt.Errorf("SEER_RX_VERSION cannot be empty")
	}
	if strings.ContainsAny(version, "/?# ") {
		return fmt.Errorf("SEER_RX_VERSION contains invalid characters: %q", version)
	}
	return nil
}

func validateTimeout(timeout time.Duration) error {
	if timeout < time.Second {
		return fmt.Errorf("HTTP_TIMEOUT is too small (min 1s), got: %s", timeout)
	}
	if timeout > 10*time.Minute {
		return fmt.Errorf("HTTP_TIMEOUT is too large (max 10m), got: %s", timeout)
	}
	return nil
}

func validateRateLimit(rate int, name string) error {
	if rate < 0 {
		return fmt.Errorf("%s cannot be negative, got: %d", name, rate)
	}
	if rate > 1000 {
		return fmt.Errorf("%s is too large (max 1000), got: %d", name, rate)
	}
	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault parses a Go duration; a malformed value is an error, not a silent default
func getDurationEnvWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	return d, nil
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"FDA_API_KEY",
		"SEER_API_KEY",
		"FDA_BASE_URL",
		"SEER_BASE_URL",
		"SEER_RX_VERSION",
		"HTTP_TIMEOUT",
		"FDA_RATE_LIMIT",
		"SEER_RATE_LIMIT",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"METRICS_FILE",
	}
}
