// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv               string // Application environment (dev, staging, prod)
	HTTPAddr             string // HTTP server bind address (e.g., ":8080")
	MetricsAddr          string // Metrics server bind address
	LogLevel             string // zerolog level name (debug, info, warn, error)
	PatternCacheSize     int    // Compiled regex patterns kept in memory; 0 disables the cache
	MaxRequestBodyBytes  int64  // Upper bound for match request bodies
	MaxFiltersPerRequest int    // Upper bound for filters in one match-all request
	RateLimitPerIP       int    // Requests per minute per client IP; 0 disables rate limiting
	DefaultPartialProps  bool   // Evaluation mode used when a request does not say
	OTLPEndpoint         string // OTLP/HTTP trace collector URL; empty disables export
}

var validLogLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "fatal": {}, "panic": {}, "disabled": {},
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
func Load() (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = viperInstance.ReadInConfig()    // Ignore error - .env is optional
	viperInstance.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(viperInstance)

	return &Config{
		AppEnv:               viperInstance.GetString("APP_ENV"),
		HTTPAddr:             viperInstance.GetString("APP_HTTP_ADDR"),
		MetricsAddr:          viperInstance.GetString("METRICS_ADDR"),
		LogLevel:             strings.ToLower(viperInstance.GetString("LOG_LEVEL")),
		PatternCacheSize:     viperInstance.GetInt("PATTERN_CACHE_SIZE"),
		MaxRequestBodyBytes:  viperInstance.GetInt64("MAX_REQUEST_BODY_BYTES"),
		MaxFiltersPerRequest: viperInstance.GetInt("MAX_FILTERS_PER_REQUEST"),
		RateLimitPerIP:       viperInstance.GetInt("RATE_LIMIT_PER_IP"),
		DefaultPartialProps:  viperInstance.GetBool("DEFAULT_PARTIAL_PROPS"),
		OTLPEndpoint:         viperInstance.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PATTERN_CACHE_SIZE", 1024)
	v.SetDefault("MAX_REQUEST_BODY_BYTES", 1<<20)
	v.SetDefault("MAX_FILTERS_PER_REQUEST", 100)
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
	v.SetDefault("DEFAULT_PARTIAL_PROPS", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks that the configuration can be used to start the server.
//
// Validation Rules:
//  1. HTTPAddr and MetricsAddr must be non-empty and distinct
//  2. LogLevel must be a zerolog level name
//  3. PatternCacheSize, RateLimitPerIP must not be negative
//  4. MaxRequestBodyBytes and MaxFiltersPerRequest must be positive
//
// Returns the first failure as a ValidationError.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return ValidationError{Field: "APP_HTTP_ADDR", Message: "HTTP server address cannot be empty"}
	}
	if c.MetricsAddr == "" {
		return ValidationError{Field: "METRICS_ADDR", Message: "metrics server address cannot be empty"}
	}
	if c.MetricsAddr == c.HTTPAddr {
		return ValidationError{Field: "METRICS_ADDR", Message: "metrics server must not share the HTTP address"}
	}
	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return ValidationError{Field: "LOG_LEVEL", Message: fmt.Sprintf("unknown log level '%s'", c.LogLevel)}
	}
	if c.PatternCacheSize < 0 {
		return ValidationError{Field: "PATTERN_CACHE_SIZE", Message: "must be 0 (disabled) or positive"}
	}
	if c.MaxRequestBodyBytes <= 0 {
		return ValidationError{Field: "MAX_REQUEST_BODY_BYTES", Message: "must be positive"}
	}
	if c.MaxFiltersPerRequest <= 0 {
		return ValidationError{Field: "MAX_FILTERS_PER_REQUEST", Message: "must be positive"}
	}
	if c.RateLimitPerIP < 0 {
		return ValidationError{Field: "RATE_LIMIT_PER_IP", Message: "must be 0 (disabled) or positive"}
	}
	return nil
}

// IsDev reports whether the app runs in the development environment.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}
