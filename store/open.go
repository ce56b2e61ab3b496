package store

import (
	"context"
	"fmt"
	"time"

	"web/polaris/config"
)

// Open creates the store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return NewFileStore(cfg.Store.Dir, cfg.Store.UseMMap)
	case "redis":
		client := OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(client, cfg.Redis.Prefix, 0), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
