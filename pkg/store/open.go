package store

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/riskgov/pkg/config"
)

// Open returns the Store selected by cfg.Store.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.DatabaseURL)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.StoreRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported store: %s", cfg.Store)
	}
}
