package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/curation-cli/internal/store"
)

// openStore creates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q (want sqlite or postgres)", cfg.Store.Driver)
	}
}
