// Command litscreen-admin applies the schema, manages projects and inspects screening state
package main

import (
	"context"
	"errors"
	"os"

	"litscreen/internal/platform/config"
	"litscreen/internal/platform/logger"
	"litscreen/internal/platform/store"
)

func main() {
	if _, err := config.LoadDotenv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load dotenv")
	}
	root := config.New()

	app := &App{
		Out:    os.Stdout,
		Secret: root.Prefix("SCREENING_").MayString("AUTH_SECRET", ""),
		Open: func(ctx context.Context) (*store.Store, error) {
			cfg := store.FromEnv(root, "litscreen-admin", 2)
			if !cfg.PG.Enabled {
				return nil, errors.New("SERVICE_PGSQL_DBURL is required")
			}
			cfg.CH.Enabled = false
			return store.Open(ctx, cfg, store.WithLogger(*logger.Get()))
		},
	}

	if err := NewRootCmd(app).Execute(); err != nil {
		os.Exit(1)
	}
}
