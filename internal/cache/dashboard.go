package cache

import (
	"strconv"
	"time"

	"fintrack/internal/metrics"
	"fintrack/internal/presentation"

	"golang.org/x/sync/singleflight"
)

// DashboardCache stores rendered dashboards keyed by ledger revision.
// Every mutation bumps the revision, so stale entries are never served;
// the TTL only bounds memory. Concurrent misses for the same revision
// share one render.
type DashboardCache struct {
	lru     *LRUCache[presentation.Dashboard]
	group   singleflight.Group
	metrics *metrics.Metrics
}

func NewDashboardCache(size int, ttl time.Duration, m *metrics.Metrics) *DashboardCache {
	return &DashboardCache{
		lru:     NewLRUCache[presentation.Dashboard](size, ttl),
		metrics: m,
	}
}

// Get returns the dashboard for revision, calling render on a miss.
func (c *DashboardCache) Get(revision uint64, render func() presentation.Dashboard) presentation.Dashboard {
	key := strconv.FormatUint(revision, 10)
	if d, ok := c.lru.Get(key); ok {
		c.observe("hit")
		return d
	}
	c.observe("miss")

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		d := render()
		// the renderer may have seen a newer revision; cache only what it rendered
		c.lru.Set(strconv.FormatUint(d.Revision, 10), d)
		return d, nil
	})
	return v.(presentation.Dashboard)
}

func (c *DashboardCache) Size() int {
	return c.lru.Size()
}

// CleanExpired lets a Manager sweep the cache.
func (c *DashboardCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *DashboardCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
