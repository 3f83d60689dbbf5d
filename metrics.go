package bigramdict

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    addCounter     prometheus.Counter
//	    sweepHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAdd(added bool, duration time.Duration, err error) {
//	    p.addCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordAdd is called after each AddBigram. added reports whether a new
	// entry was created rather than an existing one updated.
	RecordAdd(added bool, duration time.Duration, err error)

	// RecordRemove is called after each RemoveBigram.
	RecordRemove(duration time.Duration, err error)

	// RecordSweep is called after each sweep with the number of lists visited
	// and entries removed.
	RecordSweep(lists, removed int, duration time.Duration, err error)

	// RecordSnapshot is called after each Save with the snapshot size.
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(bool, time.Duration, error)       {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)          {}
func (NoopMetricsCollector) RecordSweep(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddCreated      atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	RemoveCount     atomic.Int64
	RemoveErrors    atomic.Int64
	SweepCount      atomic.Int64
	SweepErrors     atomic.Int64
	SweepLists      atomic.Int64
	SweepRemoved    atomic.Int64
	SweepTotalNanos atomic.Int64
	SnapshotCount   atomic.Int64
	SnapshotErrors  atomic.Int64
	SnapshotBytes   atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(added bool, duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	if added {
		b.AddCreated.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordSweep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSweep(lists, removed int, duration time.Duration, err error) {
	b.SweepCount.Add(1)
	b.SweepLists.Add(int64(lists))
	b.SweepRemoved.Add(int64(removed))
	b.SweepTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SweepErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddCreated:     b.AddCreated.Load(),
		AddErrors:      b.AddErrors.Load(),
		AddAvgNanos:    avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		RemoveCount:    b.RemoveCount.Load(),
		RemoveErrors:   b.RemoveErrors.Load(),
		SweepCount:     b.SweepCount.Load(),
		SweepErrors:    b.SweepErrors.Load(),
		SweepLists:     b.SweepLists.Load(),
		SweepRemoved:   b.SweepRemoved.Load(),
		SweepAvgNanos:  avg(b.SweepTotalNanos.Load(), b.SweepCount.Load()),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
		SnapshotBytes:  b.SnapshotBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddCreated     int64
	AddErrors      int64
	AddAvgNanos    int64
	RemoveCount    int64
	RemoveErrors   int64
	SweepCount     int64
	SweepErrors    int64
	SweepLists     int64
	SweepRemoved   int64
	SweepAvgNanos  int64
	SnapshotCount  int64
	SnapshotErrors int64
	SnapshotBytes  int64
}
