package domain

import "time"

// Config is the complete application configuration, loaded once at startup.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Storage     StorageConfig `mapstructure:"storage"`
	Audit       AuditConfig   `mapstructure:"audit"`
	Policy      PolicyConfig  `mapstructure:"policy"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

// StorageConfig selects and configures the review-record store.
// Backend is "sqlite" (default, on-device) or "postgres" (server
// deployments).
type StorageConfig struct {
	Backend    string         `mapstructure:"backend"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	CacheSize  int            `mapstructure:"cache_size"`
}

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AuditConfig configures the rejection audit sink. The structured log is
// always written; the redis stream is optional and best-effort.
type AuditConfig struct {
	RedisURL       string        `mapstructure:"redis_url"`
	Stream         string        `mapstructure:"stream"`
	MaxLen         int64         `mapstructure:"max_len"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// PolicyConfig locates the versioned phrase-list/disclaimer table. An empty
// Path means the embedded default policy is used.
type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
