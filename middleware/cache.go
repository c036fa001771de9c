package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-db/strata/pool"
)

type cacheTTLKey struct{}

// WithCacheTTL marks a query for caching by the cache middlewares. A zero
// ttl disables caching for that query; a negative ttl caches without
// expiration.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

// cacheTTL reports whether the context asks for caching, and the TTL.
func cacheTTL(ctx context.Context) (time.Duration, bool) {
	v := ctx.Value(cacheTTLKey{})
	if v == nil {
		return 0, false
	}
	ttl, ok := v.(time.Duration)
	if !ok || ttl == 0 {
		return 0, false
	}
	return ttl, true
}

// cacheKey derives a cache key from the statement and its arguments.
func cacheKey(q *pool.Query) string {
	return fmt.Sprintf("strata:cache:%s:%v", q.SQL, q.Args)
}

// cacheable reports whether a statement's result may be cached at all.
// Only read traffic is: Exec results change state and must reach the store.
func cacheable(q *pool.Query) bool {
	return q.Kind == pool.KindQuery
}
