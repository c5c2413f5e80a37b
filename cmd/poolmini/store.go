package main

import (
	"context"
	"fmt"

	"github.com/natindo/poolmini/internal/config"
	"github.com/natindo/poolmini/internal/database"
	"github.com/natindo/poolmini/internal/services"
)

// openStore connects to the configured database and creates the schema.
func openStore(ctx context.Context, cfg *config.Config) (services.Store, error) {
	switch cfg.DatabaseType {
	case config.DatabasePostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.CreatePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return services.NewPGStore(pool), nil

	case config.DatabaseSQLite:
		db, err := database.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.CreateSQLiteSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return services.NewSQLiteStore(db), nil
	}
	return nil, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
}
