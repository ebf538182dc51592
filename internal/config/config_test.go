package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-safety-gate/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "./data/review.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 256, cfg.Storage.CacheSize)
	assert.Equal(t, "scribe-gate:rejections", cfg.Audit.Stream)
	assert.Empty(t, cfg.Policy.Path)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("SCRIBE_GATE_SERVER_PORT", "9090")
	t.Setenv("SCRIBE_GATE_ENVIRONMENT", "production")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.True(t, m.IsProduction())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func()
	}{
		{"bad port", func() { m.config.Server.Port = 0 }},
		{"bad rate limit", func() { m.config.Server.RateLimit = 0 }},
		{"unknown backend", func() { m.config.Storage.Backend = "dynamo" }},
		{"missing sqlite path", func() { m.config.Storage.SQLitePath = "" }},
		{"bad log level", func() { m.config.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.Reload())
			tt.mutate()
			assert.Error(t, m.Validate())
		})
	}
}

func TestValidatePostgresBackend(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.config.Storage.Backend = "postgres"
	assert.NoError(t, m.Validate())

	m.config.Storage.Postgres.Database = ""
	assert.Error(t, m.Validate())
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	logger = NewLogger(domain.LoggingConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	_, ok = logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
