package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// Loader is the read side of a Store.
type Loader interface {
	All(ctx context.Context) ([]domain.Interaction, error)
}

// Status classifies a read-all snapshot.
type Status int

const (
	StatusLoaded Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Snapshot is the result of one read-all. A failed read carries Err and no records.
type Snapshot struct {
	Records  []domain.Interaction
	Err      error
	LoadedAt time.Time
}

func (s Snapshot) Status() Status {
	switch {
	case s.Err != nil:
		return StatusFailed
	case len(s.Records) == 0:
		return StatusEmpty
	default:
		return StatusLoaded
	}
}

// Cache memoises the read-all result until Invalidate is called. Writes do
// not invalidate it. Failed reads are returned but not memoised.
type Cache struct {
	src    Loader
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu   sync.Mutex
	gen  uint64
	snap *Snapshot
}

func NewCache(src Loader, logger *slog.Logger) *Cache {
	return &Cache{src: src, logger: logger, now: time.Now}
}

const loadKey = "all"

// Load returns the memoised snapshot, reading the store when there is none.
// Concurrent callers share a single store read.
func (c *Cache) Load(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.snap != nil {
		snap := *c.snap
		c.mu.Unlock()
		return snap
	}
	gen := c.gen
	c.mu.Unlock()

	v, _, _ := c.group.Do(loadKey, func() (any, error) {
		c.mu.Lock()
		if c.snap != nil {
			snap := *c.snap
			c.mu.Unlock()
			return snap, nil
		}
		c.mu.Unlock()

		records, err := c.src.All(context.WithoutCancel(ctx))
		snap := Snapshot{Records: records, Err: err, LoadedAt: c.now()}
		if err != nil {
			c.logger.Error("failed to load interactions", "error", err)
			snap.Records = nil
			return snap, nil
		}

		c.mu.Lock()
		if c.gen == gen {
			c.snap = &snap
		}
		c.mu.Unlock()

		c.logger.Info("interactions loaded", "count", len(records))
		return snap, nil
	})
	return v.(Snapshot)
}

// Invalidate drops the memoised snapshot so the next Load reads the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.snap = nil
	c.mu.Unlock()
	c.group.Forget(loadKey)
}
