// Package store opens the document store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/repository/memory"
	"alcyxob/fitness-coach/internal/repository/mongo"
)

// Open connects the configured driver and returns its repositories plus a close func.
// The mongo driver also ensures indexes before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*repository.Repositories, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
		return memory.New().Repositories(), func() {}, nil

	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		mongo.EnsureIndexes(indexCtx, db, logger)

		closeFn := func() {
			logger.Info("disconnecting MongoDB")
			if err := mongo.DisconnectDB(client); err != nil {
				logger.Error("failed to disconnect MongoDB", "error", err)
			}
		}
		return mongo.NewRepositories(db, logger), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
