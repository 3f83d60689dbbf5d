package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrOverCapacity is returned when a reservation does not fit the region.
var ErrOverCapacity = errors.New("resource: region capacity exceeded")

// Config holds the limits of one dictionary.
type Config struct {
	// CapacityBytes bounds the bigram record region. Zero means unbounded;
	// reservations are still counted.
	CapacityBytes int64

	// MaintenanceSlots is the number of sweeps that may run at once.
	// Defaults to 1.
	MaintenanceSlots int64

	// SnapshotBytesPerSec throttles snapshot encoding. Zero disables it.
	SnapshotBytesPerSec int64
}

// Controller accounts region bytes, hands out maintenance slots and paces
// snapshot IO. A nil Controller imposes no limits.
type Controller struct {
	capacity int64
	reserved atomic.Int64

	maintenance *semaphore.Weighted
	snapshotIO  *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	slots := cfg.MaintenanceSlots
	if slots <= 0 {
		slots = 1
	}
	c := &Controller{
		capacity:    max(cfg.CapacityBytes, 0),
		maintenance: semaphore.NewWeighted(slots),
	}
	if cfg.SnapshotBytesPerSec > 0 {
		c.snapshotIO = rate.NewLimiter(rate.Limit(cfg.SnapshotBytesPerSec), int(cfg.SnapshotBytesPerSec))
	}
	return c
}

// Fits reports whether n more bytes can be reserved right now.
func (c *Controller) Fits(n int64) bool {
	if c == nil || n <= 0 || c.capacity == 0 {
		return true
	}
	return c.reserved.Load()+n <= c.capacity
}

// Reserve claims n region bytes. It never blocks.
func (c *Controller) Reserve(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	for {
		cur := c.reserved.Load()
		if c.capacity > 0 && cur+n > c.capacity {
			return fmt.Errorf("%w: %d reserved, %d requested, capacity %d", ErrOverCapacity, cur, n, c.capacity)
		}
		if c.reserved.CompareAndSwap(cur, cur+n) {
			return nil
		}
	}
}

// Release returns n region bytes.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.reserved.Add(-n)
}

// Reserved returns the number of reserved region bytes.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Capacity returns the region capacity, 0 if unbounded.
func (c *Controller) Capacity() int64 {
	if c == nil {
		return 0
	}
	return c.capacity
}

// TryStartMaintenance takes a maintenance slot if one is free. A successful
// call must be paired with FinishMaintenance.
func (c *Controller) TryStartMaintenance() bool {
	if c == nil {
		return true
	}
	return c.maintenance.TryAcquire(1)
}

// FinishMaintenance returns a slot taken by TryStartMaintenance.
func (c *Controller) FinishMaintenance() {
	if c == nil {
		return
	}
	c.maintenance.Release(1)
}

// WaitSnapshotIO blocks until n snapshot bytes may be written or ctx is done.
func (c *Controller) WaitSnapshotIO(ctx context.Context, n int) error {
	if c == nil || c.snapshotIO == nil {
		return ctx.Err()
	}
	// WaitN rejects requests above the burst.
	burst := c.snapshotIO.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.snapshotIO.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
