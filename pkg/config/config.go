package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/habitatlabs/societycore/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Session configuration
	Session SessionConfig

	// Store configuration (preferences and tenant data snapshots)
	Store StoreConfig

	// Audit configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// SessionConfig holds session manager settings
type SessionConfig struct {
	// PolicyPath points at a YAML role policy file; empty means built-in
	// defaults.
	PolicyPath string
	// PolicyWatch enables hot reload of the policy file
	PolicyWatch bool

	// CachedTenants bounds how many societies stay resident in memory
	CachedTenants int
	// PersistTimeout bounds each background snapshot write
	PersistTimeout time.Duration
}

// StoreConfig holds key-value store configuration
type StoreConfig struct {
	// Type is one of: memory, filesystem, redis
	Type string

	// Filesystem store
	FilesystemRoot string

	// Redis store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	// Dir is where the append-only audit file lives
	Dir string

	BufferSize    int
	RetryBackoff  time.Duration
	FlushInterval time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Session:       loadSessionConfig(),
		Store:         loadStoreConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		PolicyPath:     getEnv("SOCIETY_POLICY_PATH", ""),
		PolicyWatch:    getEnvBool("SOCIETY_POLICY_WATCH", false),
		CachedTenants:  getEnvInt("SOCIETY_CACHED_TENANTS", 8),
		PersistTimeout: getEnvDuration("SOCIETY_PERSIST_TIMEOUT", 5*time.Second),
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Type:           getEnv("SOCIETY_STORE_TYPE", "memory"),
		FilesystemRoot: getEnv("SOCIETY_FILESYSTEM_ROOT", ""),
		RedisAddr:      getEnv("SOCIETY_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("SOCIETY_REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("SOCIETY_REDIS_DB", 0),
		RedisPrefix:    getEnv("SOCIETY_REDIS_PREFIX", "societycore:"),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Dir:           getEnv("SOCIETY_AUDIT_DIR", "./audit"),
		BufferSize:    getEnvInt("SOCIETY_AUDIT_BUFFER_SIZE", 256),
		RetryBackoff:  getEnvDuration("SOCIETY_AUDIT_RETRY_BACKOFF", 100*time.Millisecond),
		FlushInterval: getEnvDuration("SOCIETY_AUDIT_FLUSH_INTERVAL", 5*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("SOCIETY_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SOCIETY_METRICS_ENABLED", true),
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "memory":
	case "filesystem":
		if c.Store.FilesystemRoot == "" {
			return fmt.Errorf("SOCIETY_FILESYSTEM_ROOT is required for filesystem store")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("SOCIETY_REDIS_ADDR is required for redis store")
		}
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}

	if c.Session.CachedTenants <= 0 {
		return fmt.Errorf("cached tenant count must be positive")
	}
	if c.Audit.Dir == "" {
		return fmt.Errorf("audit directory is required")
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit buffer size must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
