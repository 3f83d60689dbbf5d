package bigramdict

import (
	"context"
	"time"
)

const defaultMaintenanceInterval = time.Minute

// StartMaintenance sweeps the dictionary every interval in the background
// until ctx is done, stop is called or the dictionary is closed. A
// non-positive interval means one minute.
//
// Runs take a background worker slot; a tick that finds no free slot is
// skipped.
func (d *Dictionary) StartMaintenance(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cancel()
		return func() {}
	}
	d.cancels = append(d.cancels, cancel)
	d.bg.Add(1)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer d.bg.Done()
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.maintain(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (d *Dictionary) maintain(ctx context.Context) {
	if !d.rc.TryStartMaintenance() {
		d.logger.DebugContext(ctx, "maintenance skipped, no free worker")
		return
	}
	defer d.rc.FinishMaintenance()

	// Sweep logs and records its own outcome.
	_, _ = d.Sweep(ctx)
}
