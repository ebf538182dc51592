// Package config loads application configuration from file, environment
// and defaults using Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/scribe-safety-gate/internal/domain"
)

// Manager loads and validates the application configuration
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/scribe-safety-gate/")

	viper.SetEnvPrefix("SCRIBE_GATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "15s")
	viper.SetDefault("server.rate_limit", 50)
	viper.SetDefault("server.rate_burst", 100)

	// Storage defaults
	viper.SetDefault("storage.backend", "sqlite")
	viper.SetDefault("storage.sqlite_path", "./data/review.db")
	viper.SetDefault("storage.cache_size", 256)
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.database", "scribe_gate")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "")
	viper.SetDefault("storage.postgres.ssl_mode", "disable")
	viper.SetDefault("storage.postgres.max_conns", 25)
	viper.SetDefault("storage.postgres.min_conns", 5)
	viper.SetDefault("storage.postgres.conn_max_lifetime", "5m")
	viper.SetDefault("storage.postgres.conn_max_idle_time", "30m")
	viper.SetDefault("storage.postgres.migrations_path", "./internal/database/migrations")

	// Audit defaults; an empty redis URL disables the stream sink.
	viper.SetDefault("audit.redis_url", "")
	viper.SetDefault("audit.stream", "scribe-gate:rejections")
	viper.SetDefault("audit.max_len", 10000)
	viper.SetDefault("audit.publish_timeout", "2s")

	// Policy defaults; empty path selects the embedded policy tables.
	viper.SetDefault("policy.path", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStorageConfig returns storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit <= 0 {
		return fmt.Errorf("invalid rate limit: %f", config.Server.RateLimit)
	}

	switch config.Storage.Backend {
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if config.Storage.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if config.Storage.Postgres.Database == "" {
			return fmt.Errorf("postgres database name is required")
		}
		if config.Storage.Postgres.Username == "" {
			return fmt.Errorf("postgres username is required")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", config.Storage.Backend)
	}

	if config.Audit.RedisURL != "" && config.Audit.Stream == "" {
		return fmt.Errorf("audit stream name is required when redis is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

// NewLogger builds a logrus logger from the logging configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
