package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/strata-db/strata/pool"
)

// RedisCacheMiddleware caches query results in Redis. Queries opt in with
// WithCacheTTL on the context; everything else passes through. Cached rows
// round-trip through JSON, so numeric values come back as float64.
type RedisCacheMiddleware struct {
	Client *redis.Client
}

func NewRedisCache(opt *redis.Options) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{
		Client: redis.NewClient(opt),
	}
}

func (m *RedisCacheMiddleware) Name() string {
	return "RedisCache"
}

func (m *RedisCacheMiddleware) Init(p *pool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	return m.Client.Close()
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, q *pool.Query, next pool.QueryFunc) (*pool.Result, error) {
	ttl, ok := cacheTTL(ctx)
	if !ok || !cacheable(q) {
		return next(ctx, q)
	}
	if ttl < 0 {
		// Permanent: Redis uses 0 for no expiration.
		ttl = 0
	}

	key := cacheKey(q)

	val, err := m.Client.Get(ctx, key).Result()
	if err == nil {
		var res pool.Result
		if err := json.Unmarshal([]byte(val), &res); err == nil {
			return &res, nil
		}
		// Corrupt entry: fall through to the database.
	}

	res, err := next(ctx, q)
	if err != nil {
		return res, err
	}

	if data, err := json.Marshal(res); err == nil {
		m.Client.Set(ctx, key, data, ttl)
	}
	return res, nil
}
