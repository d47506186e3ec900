// Package resource provides global throttling for fastmks instances:
// search admission control and IO rate limiting for model persistence.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentSearches is the maximum number of searches admitted at
	// once. If 0, defaults to 1.
	MaxConcurrentSearches int64

	// IOLimitBytesPerSec is the maximum IO throughput for model
	// save/load. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared resources across fastmks instances. A nil
// Controller disables all limits.
type Controller struct {
	cfg Config

	searchSem    *semaphore.Weighted
	searchActive atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = 1
	}

	c := &Controller{
		cfg:       cfg,
		searchSem: semaphore.NewWeighted(cfg.MaxConcurrentSearches),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireSearch reserves a search admission slot.
// Blocks until a slot is available or ctx is canceled.
func (c *Controller) AcquireSearch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.searchSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.searchActive.Add(1)
	return nil
}

// TryAcquireSearch reserves a search admission slot without blocking.
// Returns true if acquired.
func (c *Controller) TryAcquireSearch() bool {
	if c == nil {
		return true
	}
	if !c.searchSem.TryAcquire(1) {
		return false
	}
	c.searchActive.Add(1)
	return true
}

// ReleaseSearch releases a search admission slot.
func (c *Controller) ReleaseSearch() {
	if c == nil {
		return
	}
	c.searchActive.Add(-1)
	c.searchSem.Release(1)
}

// ActiveSearches returns the number of currently admitted searches.
func (c *Controller) ActiveSearches() int64 {
	if c == nil {
		return 0
	}
	return c.searchActive.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
