package store

import (
	"sync"
	"time"

	"github.com/i474232898/weather-companion/internal/weather"
)

// SnapshotCache is a concurrency-safe in-memory cache of weather snapshots
// keyed by location Idx. The newest entry is the one shown on the card;
// older entries are kept for the history endpoint.
type SnapshotCache struct {
	mu sync.RWMutex

	data map[int][]weather.Snapshot

	// retention configuration
	maxHistory int           // max number of snapshots per location
	maxAge     time.Duration // optional max age for snapshots
}

// NewSnapshotCache creates a cache with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewSnapshotCache(maxHistory int, maxAge time.Duration) *SnapshotCache {
	return &SnapshotCache{
		data:       make(map[int][]weather.Snapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a snapshot for a location and enforces retention.
func (c *SnapshotCache) Save(idx int, snapshot weather.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.data[idx], snapshot)

	if c.maxHistory > 0 && len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}

	// Keep the newest entry even when it is already older than maxAge.
	if c.maxAge > 0 {
		cutoff := time.Now().Add(-c.maxAge)
		i := 0
		for ; i < len(history)-1; i++ {
			if !history[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	c.data[idx] = history
}

// Latest returns the most recent snapshot for a location.
func (c *SnapshotCache) Latest(idx int) (weather.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := c.data[idx]
	if len(history) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// History returns a copy of all cached snapshots for a location, oldest first.
func (c *SnapshotCache) History(idx int) ([]weather.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := c.data[idx]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	out := make([]weather.Snapshot, len(history))
	copy(out, history)
	return out, nil
}

// Retain drops every location whose Idx is not in keep.
func (c *SnapshotCache) Retain(keep []int) {
	set := make(map[int]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for idx := range c.data {
		if _, ok := set[idx]; !ok {
			delete(c.data, idx)
		}
	}
}
