package prometheus

import (
	"time"

	"github.com/hupe1980/bigramdict"
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "bigramdict"

const (
	statusOK    = "ok"
	statusError = "error"
)

var _ bigramdict.MetricsCollector = (*Collector)(nil)

// Collector records dictionary operations as Prometheus metrics.
type Collector struct {
	adds            *prom.CounterVec
	addSeconds      prom.Histogram
	removes         *prom.CounterVec
	sweeps          *prom.CounterVec
	sweepLists      prom.Counter
	sweepRemoved    prom.Counter
	sweepSeconds    prom.Histogram
	snapshots       *prom.CounterVec
	snapshotBytes   prom.Gauge
	snapshotSeconds prom.Histogram
}

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prom.Registerer) *Collector {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	c := &Collector{
		adds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "add_total",
			Help:      "AddBigram calls by result (created, updated, error).",
		}, []string{"result"}),
		addSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "add_duration_seconds",
			Help:      "AddBigram latency in seconds.",
			Buckets:   prom.ExponentialBuckets(1e-7, 4, 10),
		}),
		removes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "remove_total",
			Help:      "RemoveBigram calls by status.",
		}, []string{"status"}),
		sweeps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Decay sweeps by status.",
		}, []string{"status"}),
		sweepLists: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "lists_total",
			Help:      "Bigram lists visited by sweeps.",
		}),
		sweepRemoved: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "removed_total",
			Help:      "Bigrams tombstoned by sweeps.",
		}),
		sweepSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep duration in seconds.",
			Buckets:   prom.ExponentialBuckets(1e-4, 4, 10),
		}),
		snapshots: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "total",
			Help:      "Snapshot commits by status.",
		}, []string{"status"}),
		snapshotBytes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "bytes",
			Help:      "Size of the last committed snapshot.",
		}),
		snapshotSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Snapshot commit duration in seconds.",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(
		c.adds, c.addSeconds,
		c.removes,
		c.sweeps, c.sweepLists, c.sweepRemoved, c.sweepSeconds,
		c.snapshots, c.snapshotBytes, c.snapshotSeconds,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// RecordAdd implements bigramdict.MetricsCollector.
func (c *Collector) RecordAdd(added bool, duration time.Duration, err error) {
	result := "updated"
	switch {
	case err != nil:
		result = statusError
	case added:
		result = "created"
	}
	c.adds.WithLabelValues(result).Inc()
	c.addSeconds.Observe(duration.Seconds())
}

// RecordRemove implements bigramdict.MetricsCollector.
func (c *Collector) RecordRemove(_ time.Duration, err error) {
	c.removes.WithLabelValues(status(err)).Inc()
}

// RecordSweep implements bigramdict.MetricsCollector.
func (c *Collector) RecordSweep(lists, removed int, duration time.Duration, err error) {
	c.sweeps.WithLabelValues(status(err)).Inc()
	c.sweepLists.Add(float64(lists))
	c.sweepRemoved.Add(float64(removed))
	c.sweepSeconds.Observe(duration.Seconds())
}

// RecordSnapshot implements bigramdict.MetricsCollector.
func (c *Collector) RecordSnapshot(bytes int64, duration time.Duration, err error) {
	c.snapshots.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	c.snapshotBytes.Set(float64(bytes))
	c.snapshotSeconds.Observe(duration.Seconds())
}
