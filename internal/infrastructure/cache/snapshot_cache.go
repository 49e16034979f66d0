package cache

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// SnapshotCache holds the latest loaded snapshot for a limited time.
// Readers always see either the previous or the new snapshot, never a mix.
type SnapshotCache struct {
	snapshot   *entity.Snapshot
	storedAt   time.Time
	expiration time.Duration
	mutex      sync.RWMutex

	// loadMutex makes concurrent misses share one load
	loadMutex sync.Mutex
	now       func() time.Time
}

// NewSnapshotCache creates a cache whose entries expire after ttl. A zero ttl
// disables caching: every Get misses.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		expiration: ttl,
		now:        time.Now,
	}
}

// Get returns the cached snapshot, or nil if there is none or it has expired
func (c *SnapshotCache) Get() *entity.Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.snapshot == nil || c.now().Sub(c.storedAt) >= c.expiration {
		return nil
	}
	return c.snapshot
}

// Put swaps in a new snapshot
func (c *SnapshotCache) Put(snapshot *entity.Snapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.snapshot = snapshot
	c.storedAt = c.now()
}

// GetOrLoad returns the cached snapshot or calls load to replace it. Only one
// load runs at a time; callers waiting on it reuse its result. A failed load
// leaves the cache empty so an expired snapshot is never served.
func (c *SnapshotCache) GetOrLoad(ctx context.Context, load func(context.Context) (*entity.Snapshot, error)) (*entity.Snapshot, bool, error) {
	if snap := c.Get(); snap != nil {
		return snap, true, nil
	}

	c.loadMutex.Lock()
	defer c.loadMutex.Unlock()

	if snap := c.Get(); snap != nil {
		return snap, true, nil
	}

	snap, err := load(ctx)
	if err != nil {
		c.Clear()
		return nil, false, err
	}
	c.Put(snap)
	return snap, false, nil
}

// Reload calls load regardless of the cached snapshot's age and swaps in the
// result. It waits for any load already in flight, so an older load never
// replaces a newer snapshot. A failed reload leaves the cache unchanged.
func (c *SnapshotCache) Reload(ctx context.Context, load func(context.Context) (*entity.Snapshot, error)) (*entity.Snapshot, error) {
	c.loadMutex.Lock()
	defer c.loadMutex.Unlock()

	snap, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Put(snap)
	return snap, nil
}

// Clear drops the cached snapshot
func (c *SnapshotCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.snapshot = nil
	c.storedAt = time.Time{}
}

// SetExpiration changes the time-to-live of the cached snapshot
func (c *SnapshotCache) SetExpiration(ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.expiration = ttl
}

// Age returns how long ago the current snapshot was stored. ok is false when empty.
func (c *SnapshotCache) Age() (age time.Duration, ok bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.snapshot == nil {
		return 0, false
	}
	return c.now().Sub(c.storedAt), true
}
