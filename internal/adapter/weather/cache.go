package weather

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// CachedProvider wraps a WeatherProvider with a per-city TTL cache so every
// map view does not turn into an upstream API call.
type CachedProvider struct {
	inner   domain.WeatherProvider
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	cond    domain.Conditions
	expires time.Time
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.WeatherProvider, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) Current(ctx context.Context, city string) (domain.Conditions, error) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[city]
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return e.cond, nil
	}

	c.metrics.WeatherCache.WithLabelValues("miss").Inc()
	cond, err := c.inner.Current(ctx, city)
	if err != nil {
		// A stale entry beats an error banner.
		if ok {
			return e.cond, nil
		}
		return domain.Conditions{}, err
	}

	c.mu.Lock()
	c.entries[city] = cacheEntry{cond: cond, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return cond, nil
}
