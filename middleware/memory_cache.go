package middleware

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/strata-db/strata/pool"
)

// MemoryCacheMiddleware caches query results in an in-process LRU. Queries
// opt in with WithCacheTTL on the context. Expired entries are dropped on
// read; the LRU bounds memory, so no sweeper goroutine is needed. Cached
// rows round-trip through JSON, so numeric values come back as float64.
type MemoryCacheMiddleware struct {
	cache *lru.Cache
}

type memoryCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates a memory cache holding at most size results.
func NewMemoryCache(size int) (*MemoryCacheMiddleware, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryCacheMiddleware{cache: c}, nil
}

func (m *MemoryCacheMiddleware) Name() string {
	return "MemoryCache"
}

func (m *MemoryCacheMiddleware) Init(p *pool.Pool) error {
	return nil
}

func (m *MemoryCacheMiddleware) Shutdown() error {
	m.cache.Purge()
	return nil
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, q *pool.Query, next pool.QueryFunc) (*pool.Result, error) {
	ttl, ok := cacheTTL(ctx)
	if !ok || !cacheable(q) {
		return next(ctx, q)
	}

	key := cacheKey(q)

	if v, found := m.cache.Get(key); found {
		entry := v.(memoryCacheEntry)
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			var res pool.Result
			if err := json.Unmarshal(entry.data, &res); err == nil {
				return &res, nil
			}
		}
		m.cache.Remove(key)
	}

	res, err := next(ctx, q)
	if err != nil {
		return res, err
	}

	if data, err := json.Marshal(res); err == nil {
		entry := memoryCacheEntry{data: data}
		if ttl > 0 {
			entry.expiresAt = time.Now().Add(ttl)
		}
		m.cache.Add(key, entry)
	}
	return res, nil
}
