package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/bomanihosts/backend/internal/storage/postgres"
)

// openStore connects a small pool for one-shot administrative commands.
// The returned close func releases it.
func openStore(ctx context.Context, cfg config.Config) (*postgres.Store, func(), error) {
	poolCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(poolCtx, cfg.Database.URL, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	store, err := postgres.NewStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
