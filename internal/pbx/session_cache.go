package pbx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKey = "pbx:session"

// RedisSessionCache keeps the PBX session key pair in redis with a TTL so
// restarts and repeated poll cycles reuse one login instead of
// re-authenticating every time.
type RedisSessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb, ttl: ttl}
}

func (c *RedisSessionCache) Get(ctx context.Context) (Session, bool, error) {
	raw, err := c.rdb.Get(ctx, sessionKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry behaves like a miss; the client re-authenticates.
		return Session{}, false, nil
	}
	if s.Key == "" || s.KeyID == "" {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (c *RedisSessionCache) Put(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, sessionKey, b, c.ttl).Err()
}
