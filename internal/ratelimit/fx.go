package ratelimit

import (
	"github.com/inkwavehq/inkwave/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// newRedisClient returns nil when no address is configured; the limiter then
// runs in pass-through mode.
func newRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Warn("redis not configured, rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

var Module = fx.Module("rate.limit",
	fx.Provide(
		newRedisClient,
		NewTokenBucket,
	),
)
