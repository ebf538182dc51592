package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/audit"
	"github.com/scribe-safety-gate/internal/database"
	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/policy"
	"github.com/scribe-safety-gate/internal/review"
)

// Version is the released gate version reported by every surface.
const Version = "v0.1.0"

// Bootstrap assembles a gatekeeper from configuration: policy tables, the
// selected review store (running migrations for the postgres backend), and
// the audit recorder with its optional redis sink. The returned cleanup
// closes everything the gatekeeper holds open.
func Bootstrap(ctx context.Context, cfg *domain.Config, production bool, logger *logrus.Logger) (*Gatekeeper, func(), error) {
	policies, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load policy tables: %w", err)
	}

	store, db, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close review store")
		}
		// Closing the stdlib wrapper does not close the underlying pool.
		if db != nil {
			db.Close()
		}
	}

	gate, err := review.NewGate(store, cfg.Storage.CacheSize, logger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to create review gate: %w", err)
	}

	var sink audit.Sink
	if cfg.Audit.RedisURL != "" {
		redisSink, err := audit.NewRedisSink(cfg.Audit)
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("failed to create audit sink: %w", err)
		}
		sink = redisSink
	}
	recorder := audit.NewRecorder(logger, sink, cfg.Audit.PublishTimeout)

	gatekeeper := New(policies, gate, recorder, production, logger)
	if db != nil {
		gatekeeper.SetHealthCheck(func(ctx context.Context) error {
			if err := db.Health(ctx); err != nil {
				return err
			}
			stats := db.Stats()
			logger.WithFields(logrus.Fields{
				"total_conns":    stats.TotalConns(),
				"idle_conns":     stats.IdleConns(),
				"acquired_conns": stats.AcquiredConns(),
			}).Debug("Postgres pool healthy")
			return nil
		})
	}

	cleanup := func() {
		if err := recorder.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close audit recorder")
		}
		closeStore()
	}
	return gatekeeper, cleanup, nil
}

// openStore opens the configured review store backend. For the postgres
// backend it also returns the pgx pool so callers can probe its health;
// the pool outlives the store and must be closed after it.
func openStore(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (review.Store, *database.DB, error) {
	switch cfg.Backend {
	case "postgres":
		url := database.URL(cfg.Postgres)

		runner, err := database.NewMigrationRunner(url, cfg.Postgres.MigrationsPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create migration runner: %w", err)
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			return nil, nil, err
		}
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}

		db, err := database.NewConnection(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store, err := review.NewPostgresStore(stdlib.OpenDBFromPool(db.Pool))
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, db, nil
	default:
		store, err := review.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil, nil
	}
}
