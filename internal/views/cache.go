package views

import (
	"context"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// StatsSource produces channel stats.
type StatsSource interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

type statsEntry struct {
	stats   models.ChannelStats
	expires time.Time
}

// CachingStats wraps a StatsSource with a per-channel TTL cache.
type CachingStats struct {
	base StatsSource
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]statsEntry
}

// NewCachingStats returns a StatsSource that caches results for ttl.
func NewCachingStats(base StatsSource, ttl time.Duration) *CachingStats {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachingStats{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]statsEntry),
	}
}

// ChannelStats returns cached stats when fresh, otherwise it delegates to the
// underlying source and stores the result. Failures are not cached.
func (c *CachingStats) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[ownerID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.ChannelStats(ctx, ownerID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	c.mu.Lock()
	c.items[ownerID] = statsEntry{stats: stats, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}

// Invalidate drops the cached stats of ownerID.
func (c *CachingStats) Invalidate(ownerID string) {
	c.mu.Lock()
	delete(c.items, ownerID)
	c.mu.Unlock()
}
