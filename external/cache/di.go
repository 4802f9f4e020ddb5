package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/samber/do/v2"
)

const (
	redisInitTimeout   = 10 * time.Second
	resolveCachePrefix = "darkbot:resolve:"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (resolver.Cache, error) {
		c := do.MustInvoke[*config.Config](i)
		clk := do.MustInvoke[clock.Clock](i)
		if c.RedisURL == "" {
			return NewTTLMap[resolver.Result](c.ResolveCacheTTL, clk), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), redisInitTimeout)
		defer cancel()
		client, err := ConnectRedis(ctx, c.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("resolve cache backed by redis")
		return NewRedis[resolver.Result](client, resolveCachePrefix, c.ResolveCacheTTL), nil
	})
}
