package cache

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(
		NewRedisClient,
		NewStore,
	),
)

// NewStore picks the snapshot store configured by SNAPSHOT_CACHE.
func NewStore(cfg config.Config, client *redis.Client, log *zap.Logger) Store {
	var store Store
	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		store = NewRedisStore(client)
	case config.CacheDriverNone:
		store = NewNoopStore()
	default:
		store = NewMemoryStore(cfg.Cache.TTL)
	}
	log.Named("cache").Info("snapshot cache configured",
		zap.String("driver", store.Name()),
		zap.Duration("ttl", cfg.Cache.TTL),
	)
	return store
}
