// Package otelmetric records dictionary metrics with OpenTelemetry.
package otelmetric

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/bigramdict"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope of all instruments.
const ScopeName = "github.com/hupe1980/bigramdict"

var _ bigramdict.MetricsCollector = (*Collector)(nil)

// Collector implements bigramdict.MetricsCollector with OpenTelemetry
// instruments. The MetricsCollector interface carries no context, so
// measurements are recorded with context.Background.
type Collector struct {
	meter         metric.Meter
	adds          metric.Int64Counter
	addLatency    metric.Float64Histogram
	removes       metric.Int64Counter
	sweeps        metric.Int64Counter
	sweepRemoved  metric.Int64Counter
	sweepLatency  metric.Float64Histogram
	snapshots     metric.Int64Counter
	snapshotBytes metric.Int64Histogram
}

// NewCollector creates the instruments on mp. A nil mp uses the global
// meter provider.
func NewCollector(mp metric.MeterProvider) (*Collector, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	c := &Collector{meter: mp.Meter(ScopeName)}

	var errs []error
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	c.adds, err = c.meter.Int64Counter("bigramdict.add",
		metric.WithDescription("AddBigram calls by result"))
	record(err)
	c.addLatency, err = c.meter.Float64Histogram("bigramdict.add.duration",
		metric.WithDescription("Duration of AddBigram"),
		metric.WithUnit("s"))
	record(err)
	c.removes, err = c.meter.Int64Counter("bigramdict.remove",
		metric.WithDescription("RemoveBigram calls"))
	record(err)
	c.sweeps, err = c.meter.Int64Counter("bigramdict.sweep",
		metric.WithDescription("Decay sweeps"))
	record(err)
	c.sweepRemoved, err = c.meter.Int64Counter("bigramdict.sweep.removed",
		metric.WithDescription("Bigrams tombstoned by sweeps"))
	record(err)
	c.sweepLatency, err = c.meter.Float64Histogram("bigramdict.sweep.duration",
		metric.WithDescription("Duration of decay sweeps"),
		metric.WithUnit("s"))
	record(err)
	c.snapshots, err = c.meter.Int64Counter("bigramdict.snapshot",
		metric.WithDescription("Snapshot commits"))
	record(err)
	c.snapshotBytes, err = c.meter.Int64Histogram("bigramdict.snapshot.size",
		metric.WithDescription("Size of committed snapshots"),
		metric.WithUnit("By"))
	record(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func okAttr(err error) metric.MeasurementOption {
	return metric.WithAttributes(attribute.Bool("ok", err == nil))
}

// RecordAdd implements bigramdict.MetricsCollector.
func (c *Collector) RecordAdd(added bool, duration time.Duration, err error) {
	ctx := context.Background()
	result := "updated"
	switch {
	case err != nil:
		result = "error"
	case added:
		result = "created"
	}
	c.adds.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	c.addLatency.Record(ctx, duration.Seconds())
}

// RecordRemove implements bigramdict.MetricsCollector.
func (c *Collector) RecordRemove(_ time.Duration, err error) {
	c.removes.Add(context.Background(), 1, okAttr(err))
}

// RecordSweep implements bigramdict.MetricsCollector.
func (c *Collector) RecordSweep(_, removed int, duration time.Duration, err error) {
	ctx := context.Background()
	c.sweeps.Add(ctx, 1, okAttr(err))
	c.sweepRemoved.Add(ctx, int64(removed))
	c.sweepLatency.Record(ctx, duration.Seconds())
}

// RecordSnapshot implements bigramdict.MetricsCollector.
func (c *Collector) RecordSnapshot(bytes int64, _ time.Duration, err error) {
	ctx := context.Background()
	c.snapshots.Add(ctx, 1, okAttr(err))
	if err == nil {
		c.snapshotBytes.Record(ctx, bytes)
	}
}

// StatsSource provides dictionary statistics.
type StatsSource interface {
	Stats() bigramdict.Stats
}

// ObserveStats registers observable gauges that read src on every collection.
// Unregister the returned registration to stop observing.
func (c *Collector) ObserveStats(src StatsSource) (metric.Registration, error) {
	bigrams, err := c.meter.Int64ObservableGauge("bigramdict.bigrams",
		metric.WithDescription("Live bigrams"))
	if err != nil {
		return nil, err
	}
	content, err := c.meter.Int64ObservableGauge("bigramdict.content.size",
		metric.WithDescription("Size of the content region by kind"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	reachable := metric.WithAttributes(attribute.String("kind", "reachable"))
	abandoned := metric.WithAttributes(attribute.String("kind", "abandoned"))
	return c.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		o.ObserveInt64(bigrams, int64(s.Bigrams))
		o.ObserveInt64(content, int64(s.ReachableBytes), reachable)
		o.ObserveInt64(content, int64(s.AbandonedBytes), abandoned)
		return nil
	}, bigrams, content)
}
