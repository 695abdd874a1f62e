package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sourdough-cli/internal/db"
	"github.com/sells-group/sourdough-cli/internal/store"
)

// initStore opens the configured backend. Callers migrate and close it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "sourdough.db"
		}
		zap.L().Debug("opening sqlite store", zap.String("path", dsn))
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: database_url is required for postgres")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{MaxConns: 10, MinConns: 1})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Store.Driver)
	}
}

// openMigrated opens the store and applies the schema.
func openMigrated(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
