package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all rosterd configuration
type Config struct {
	// Server settings
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`

	// Database settings
	DatabaseURL         string        `yaml:"database_url"`
	DatabaseReplicaURLs string        `yaml:"database_replica_urls"`
	DatabaseMaxConns    int           `yaml:"database_max_conns"`
	DatabaseMinConns    int           `yaml:"database_min_conns"`
	DatabaseTimeout     time.Duration `yaml:"database_timeout"`
	DatabaseMaxLifetime time.Duration `yaml:"database_max_lifetime"`
	DatabaseMaxIdleTime time.Duration `yaml:"database_max_idle_time"`

	// Redis settings (join-code rate limiting)
	RedisURL          string        `yaml:"redis_url"`
	JoinRateLimit     int           `yaml:"join_rate_limit"`
	JoinRateWindow    time.Duration `yaml:"join_rate_window"`
	RateLimitDisabled bool          `yaml:"rate_limit_disabled"`

	// Identity resolution (member/requester display data); empty disables it
	IdentityURL     string        `yaml:"identity_url"`
	IdentityTimeout time.Duration `yaml:"identity_timeout"`

	// Audit retention
	AuditRetention     time.Duration `yaml:"audit_retention"`
	AuditPurgeSchedule string        `yaml:"audit_purge_schedule"`

	// Observability
	LogLevel string `yaml:"log_level"`

	// Shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load builds the configuration. If ROSTER_CONFIG_FILE is set, the YAML file
// at that path is read first; environment variables then override any value
// it provided.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("ROSTER_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Host:                "0.0.0.0",
		Port:                8080,
		MetricsPort:         9090,
		DatabaseMaxConns:    25,
		DatabaseMinConns:    5,
		DatabaseTimeout:     10 * time.Second,
		DatabaseMaxLifetime: 30 * time.Minute,
		DatabaseMaxIdleTime: 5 * time.Minute,
		JoinRateLimit:       10,
		JoinRateWindow:      time.Minute,
		IdentityTimeout:     5 * time.Second,
		AuditRetention:      90 * 24 * time.Hour,
		AuditPurgeSchedule:  "0 3 * * *",
		LogLevel:            "info",
		ShutdownTimeout:     30 * time.Second,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadEnv() {
	c.Host = getEnv("ROSTER_HOST", c.Host)
	c.Port = getEnvInt("ROSTER_PORT", c.Port)
	c.MetricsPort = getEnvInt("ROSTER_METRICS_PORT", c.MetricsPort)

	c.DatabaseURL = getEnv("ROSTER_DATABASE_URL", c.DatabaseURL)
	c.DatabaseReplicaURLs = getEnv("ROSTER_DATABASE_REPLICA_URLS", c.DatabaseReplicaURLs)
	c.DatabaseMaxConns = getEnvInt("ROSTER_DATABASE_MAX_CONNS", c.DatabaseMaxConns)
	c.DatabaseMinConns = getEnvInt("ROSTER_DATABASE_MIN_CONNS", c.DatabaseMinConns)
	c.DatabaseTimeout = getEnvDuration("ROSTER_DATABASE_TIMEOUT", c.DatabaseTimeout)
	c.DatabaseMaxLifetime = getEnvDuration("ROSTER_DATABASE_MAX_LIFETIME", c.DatabaseMaxLifetime)
	c.DatabaseMaxIdleTime = getEnvDuration("ROSTER_DATABASE_MAX_IDLE_TIME", c.DatabaseMaxIdleTime)

	c.RedisURL = getEnv("ROSTER_REDIS_URL", c.RedisURL)
	c.JoinRateLimit = getEnvInt("ROSTER_JOIN_RATE_LIMIT", c.JoinRateLimit)
	c.JoinRateWindow = getEnvDuration("ROSTER_JOIN_RATE_WINDOW", c.JoinRateWindow)
	c.RateLimitDisabled = getEnvBool("ROSTER_RATE_LIMIT_DISABLED", c.RateLimitDisabled)

	c.IdentityURL = getEnv("ROSTER_IDENTITY_URL", c.IdentityURL)
	c.IdentityTimeout = getEnvDuration("ROSTER_IDENTITY_TIMEOUT", c.IdentityTimeout)

	c.AuditRetention = getEnvDuration("ROSTER_AUDIT_RETENTION", c.AuditRetention)
	c.AuditPurgeSchedule = getEnv("ROSTER_AUDIT_PURGE_SCHEDULE", c.AuditPurgeSchedule)

	c.LogLevel = getEnv("ROSTER_LOG_LEVEL", c.LogLevel)
	c.ShutdownTimeout = getEnvDuration("ROSTER_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("ROSTER_DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.Port == c.MetricsPort {
		return fmt.Errorf("port and metrics port must differ")
	}
	if c.DatabaseMaxConns < 1 {
		return fmt.Errorf("database max conns must be at least 1")
	}
	if c.JoinRateLimit < 1 {
		return fmt.Errorf("join rate limit must be at least 1")
	}
	if c.AuditRetention < time.Hour {
		return fmt.Errorf("audit retention must be at least one hour")
	}
	return nil
}

// Addr returns the host:port address for the main HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddr returns the host:port address for the metrics server
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
