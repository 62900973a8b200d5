package positions

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/positions/service"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
)

// NewPositionStore: Redis, если задан адрес, иначе память процесса.
func NewPositionStore(lc fx.Lifecycle, cfg *config.Config) runner.PositionStore {
	if cfg.Redis.Addr == "" {
		logger.Info("[BOOT] redis.addr is empty, positions kept in memory")
		return service.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return service.NewRedisStore(client, cfg.Redis.Prefix)
}

func Module() fx.Option {
	return fx.Module("positions",
		fx.Provide(
			NewPositionStore,
		),
	)
}
