// Package bootstrap wires the configured backends for the service binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/infrastructure/db"
	"github.com/IgorGrieder/shorty/internal/infrastructure/db/migrations"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	mongoStorage "github.com/IgorGrieder/shorty/internal/storage/mongo"
	postgresStorage "github.com/IgorGrieder/shorty/internal/storage/postgres"
	sqliteStorage "github.com/IgorGrieder/shorty/internal/storage/sqlite"
	"go.uber.org/zap"
)

// OpenStore connects to the configured backend, retrying per the storage
// init policy, and returns the store with its release func.
func OpenStore(ctx context.Context, cfg *config.Config) (links.Store, func(), error) {
	policy := db.RetryPolicy{
		Attempts: cfg.Storage.InitAttempts,
		Backoff:  cfg.Storage.InitBackoff,
	}

	var (
		store   links.Store
		release func()
		err     error
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		store, release, err = openPostgres(ctx, cfg, policy)
	case config.BackendMongo:
		store, release, err = openMongo(ctx, cfg, policy)
	case config.BackendSQLite:
		store, release, err = openSQLite(ctx, cfg, policy)
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Storage backend selected", zap.String("backend", cfg.Storage.Backend))
	return store, release, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, policy db.RetryPolicy) (links.Store, func(), error) {
	dsn := cfg.Postgres.DSN()

	pgConn, err := db.InitWithRetry(ctx, config.BackendPostgres, policy, func(ctx context.Context) (*db.Postgres, error) {
		conn, err := db.ConnectPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := migrations.Run(dsn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return conn, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	repo, err := postgresStorage.NewLinksRepository(pgConn)
	if err != nil {
		pgConn.Close()
		return nil, nil, fmt.Errorf("init postgres links repository: %w", err)
	}
	return repo, pgConn.Close, nil
}

func openMongo(ctx context.Context, cfg *config.Config, policy db.RetryPolicy) (links.Store, func(), error) {
	mongoConn, err := db.InitWithRetry(ctx, config.BackendMongo, policy, func(ctx context.Context) (*db.Mongo, error) {
		return db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	release := func() { _ = mongoConn.Disconnect() }

	repo, err := mongoStorage.NewLinksRepository(ctx, mongoConn)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("init mongo links repository: %w", err)
	}
	return repo, release, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, policy db.RetryPolicy) (links.Store, func(), error) {
	handle, err := db.InitWithRetry(ctx, config.BackendSQLite, policy, func(ctx context.Context) (*db.SQLite, error) {
		return db.OpenSQLite(ctx, cfg.SQLite.Path)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	repo, err := sqliteStorage.NewLinksRepository(handle)
	if err != nil {
		_ = handle.Close()
		return nil, nil, fmt.Errorf("init sqlite links repository: %w", err)
	}
	return repo, func() { _ = handle.Close() }, nil
}
