package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/lock"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
)

const redisInitTimeout = 5 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (lock.Locker, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.RedisURL == "" {
			slog.Info("using in-process candidate locks")
			return NewMemoryLocker(), nil
		}

		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), redisInitTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		slog.Info("using redis candidate locks", "addr", opts.Addr)
		return NewRedisLocker(rdb, c.LockTTL()), nil
	})
}
