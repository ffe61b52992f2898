package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/store"
)

// initStore opens the configured run-archive backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "foodaccess.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.PostgresDSN)
	default:
		return nil, eris.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// truncateID shortens a UUID for tabular display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
