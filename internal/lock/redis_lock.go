package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock implements Lock with SET NX PX / SET XX PX / DEL.
type RedisLock struct {
	Client *redis.Client
}

func (l RedisLock) Acquire(ctx context.Context, key, state string, ttl time.Duration) (bool, error) {
	ok, err := l.Client.SetNX(ctx, key, state, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	return ok, nil
}

func (l RedisLock) Extend(ctx context.Context, key, state string, ttl time.Duration) error {
	ok, err := l.Client.SetXX(ctx, key, state, ttl).Result()
	if err != nil {
		return fmt.Errorf("extend lease %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("extend lease %s: lease expired", key)
	}
	return nil
}

func (l RedisLock) Release(ctx context.Context, key string) error {
	if err := l.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", key, err)
	}
	return nil
}

func (l RedisLock) Exists(ctx context.Context, key string) (bool, error) {
	n, err := l.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check lease %s: %w", key, err)
	}
	return n > 0, nil
}
