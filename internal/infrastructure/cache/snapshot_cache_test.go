package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*SnapshotCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)}
	c := NewSnapshotCache(ttl)
	c.now = clock.Now
	return c, clock
}

func TestSnapshotCache(t *testing.T) {
	c, clock := newTestCache(time.Minute)

	assert.Nil(t, c.Get())
	_, ok := c.Age()
	assert.False(t, ok)

	snap := &entity.Snapshot{ID: "s1"}
	c.Put(snap)
	assert.Same(t, snap, c.Get())

	clock.Advance(30 * time.Second)
	age, ok := c.Age()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, age)
	assert.Same(t, snap, c.Get())

	clock.Advance(30 * time.Second)
	assert.Nil(t, c.Get(), "snapshot expires at the ttl")

	c.SetExpiration(time.Hour)
	assert.Same(t, snap, c.Get())

	c.Clear()
	assert.Nil(t, c.Get())
}

func TestSnapshotCacheZeroTTL(t *testing.T) {
	c, _ := newTestCache(0)
	c.Put(&entity.Snapshot{ID: "s1"})
	assert.Nil(t, c.Get())
}

func TestSnapshotCacheGetOrLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Loads once then serves from cache", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		var loads int32
		load := func(context.Context) (*entity.Snapshot, error) {
			atomic.AddInt32(&loads, 1)
			return &entity.Snapshot{ID: "fresh"}, nil
		}

		snap, cached, err := c.GetOrLoad(ctx, load)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "fresh", snap.ID)

		snap, cached, err = c.GetOrLoad(ctx, load)
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	})

	t.Run("Failed load never serves the expired snapshot", func(t *testing.T) {
		c, clock := newTestCache(time.Minute)
		c.Put(&entity.Snapshot{ID: "old"})
		clock.Advance(2 * time.Minute)

		loadErr := &entity.LoadError{Source: "sheet", Err: errors.New("timeout")}
		snap, _, err := c.GetOrLoad(ctx, func(context.Context) (*entity.Snapshot, error) {
			return nil, loadErr
		})

		assert.Nil(t, snap)
		assert.Same(t, loadErr, err)
		_, ok := c.Age()
		assert.False(t, ok)
	})

	t.Run("Concurrent misses share one load", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		var loads int32
		release := make(chan struct{})
		load := func(context.Context) (*entity.Snapshot, error) {
			atomic.AddInt32(&loads, 1)
			<-release
			return &entity.Snapshot{ID: "shared"}, nil
		}

		var wg sync.WaitGroup
		results := make([]*entity.Snapshot, 10)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				snap, _, err := c.GetOrLoad(ctx, load)
				assert.NoError(t, err)
				results[i] = snap
			}(i)
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
		for _, snap := range results {
			assert.Equal(t, "shared", snap.ID)
		}
	})
}

func TestSnapshotCacheReload(t *testing.T) {
	ctx := context.Background()

	t.Run("Replaces a fresh snapshot", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		c.Put(&entity.Snapshot{ID: "old"})

		snap, err := c.Reload(ctx, func(context.Context) (*entity.Snapshot, error) {
			return &entity.Snapshot{ID: "new"}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "new", snap.ID)
		assert.Equal(t, "new", c.Get().ID)
	})

	t.Run("Failure keeps the cached snapshot", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		c.Put(&entity.Snapshot{ID: "old"})

		snap, err := c.Reload(ctx, func(context.Context) (*entity.Snapshot, error) {
			return nil, errors.New("status 503")
		})

		assert.Nil(t, snap)
		assert.Error(t, err)
		assert.Equal(t, "old", c.Get().ID)
	})

	t.Run("Waits for a load in flight", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		started := make(chan struct{})
		release := make(chan struct{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrLoad(ctx, func(context.Context) (*entity.Snapshot, error) {
				close(started)
				<-release
				return &entity.Snapshot{ID: "older"}, nil
			})
			assert.NoError(t, err)
		}()

		<-started
		go func() {
			defer wg.Done()
			_, err := c.Reload(ctx, func(context.Context) (*entity.Snapshot, error) {
				return &entity.Snapshot{ID: "newer"}, nil
			})
			assert.NoError(t, err)
		}()

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, "newer", c.Get().ID)
	})
}
