package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-safety-gate/internal/domain"
)

func TestBootstrapSQLiteBackend(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &domain.Config{
		Storage: domain.StorageConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "review.db"),
			CacheSize:  16,
		},
		Audit: domain.AuditConfig{PublishTimeout: time.Second},
	}

	gatekeeper, cleanup, err := Bootstrap(context.Background(), cfg, false, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.NotEmpty(t, gatekeeper.PolicyVersion())

	// SQLite deployments carry no pool probe.
	assert.NoError(t, gatekeeper.Health(context.Background()))
}
