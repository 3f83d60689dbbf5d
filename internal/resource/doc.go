// Package resource implements the Controller for the limits of a dictionary.
//
// The Controller governs three resources:
//
//   - Region bytes: the capacity of the append-only bigram record region
//   - Maintenance slots: how many sweeps may run at once
//   - Snapshot IO: the write rate of snapshot encoding
//
// # Region Capacity
//
// Reserve never blocks. When the region is full it returns ErrOverCapacity
// and the caller reports a storage failure. Fits lets a caller check a
// reservation before committing to a mutation:
//
//	rc := resource.NewController(resource.Config{
//	    CapacityBytes: 16 << 20, // 16 MiB of bigram records
//	})
//
//	if !rc.Fits(9) {
//	    // reject before logging
//	}
//
// # Maintenance Slots
//
//	if !rc.TryStartMaintenance() {
//	    return // a sweep is already running
//	}
//	defer rc.FinishMaintenance()
//
// # Snapshot IO
//
//	w := resource.NewThrottledWriter(ctx, &buf, rc)
//
// A nil Controller imposes no limits.
package resource
