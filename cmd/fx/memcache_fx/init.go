package memcache_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"schoolpay/internal/config"
	"schoolpay/internal/infra"
	mem "schoolpay/pkg/memcache"
)

var Module = fx.Provide(provideEventGuard)

// provideEventGuard shares the in-flight guard through redis when REDIS_URL is set.
func provideEventGuard(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (mem.EventGuard, error) {
	if cfg.Redis.URL == "" {
		log.Info("REDIS_URL not set; webhook in-flight guard is process-local")
		return mem.NewMemoryGuard(), nil
	}

	client, err := infra.InitRedis(context.Background(), cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	return mem.NewRedisGuard(client), nil
}
