// Package database opens the repository.Store selected by configuration.
package database

import (
	"context"
	"fmt"
	"time"

	"assettracker-backend/internal/config"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/repository/memory"
	"assettracker-backend/internal/repository/mongo"
	"assettracker-backend/internal/repository/postgres"
)

const connectTimeout = 30 * time.Second

// Open connects the configured backend. For postgres it applies migrations first when
// migrate_on_start is set.
func Open(ctx context.Context, cfg config.DatabaseConfig, dsn string) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(dsn); err != nil {
				return nil, err
			}
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to PostgreSQL", "host", cfg.Host, "database", cfg.Database)
		return store, nil
	case config.DriverMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}
