package otelmetric

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/bigramdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestCollector(t *testing.T) (*Collector, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	c, err := NewCollector(mp)
	require.NoError(t, err)
	return c, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumByAttr(t *testing.T, data metricdata.Aggregation, key string) map[string]int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.Emit()] += dp.Value
	}
	return out
}

func TestCollector_Record(t *testing.T) {
	c, reader := newTestCollector(t)

	c.RecordAdd(true, time.Microsecond, nil)
	c.RecordAdd(false, time.Microsecond, nil)
	c.RecordAdd(false, time.Microsecond, errors.New("boom"))
	c.RecordRemove(time.Microsecond, nil)
	c.RecordSweep(4, 3, time.Millisecond, nil)
	c.RecordSnapshot(256, time.Millisecond, nil)
	c.RecordSnapshot(0, time.Millisecond, errors.New("boom"))

	got := collect(t, reader)

	assert.Equal(t, map[string]int64{"created": 1, "updated": 1, "error": 1},
		sumByAttr(t, got["bigramdict.add"], "result"))
	assert.Equal(t, map[string]int64{"true": 1}, sumByAttr(t, got["bigramdict.remove"], "ok"))
	assert.Equal(t, map[string]int64{"true": 1, "false": 1}, sumByAttr(t, got["bigramdict.snapshot"], "ok"))

	removed, ok := got["bigramdict.sweep.removed"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, removed.DataPoints, 1)
	assert.Equal(t, int64(3), removed.DataPoints[0].Value)

	size, ok := got["bigramdict.snapshot.size"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, uint64(1), size.DataPoints[0].Count)
	assert.Equal(t, int64(256), size.DataPoints[0].Sum)
}

func TestCollector_ObserveStats(t *testing.T) {
	ctx := context.Background()
	c, reader := newTestCollector(t)

	d, err := bigramdict.New(bigramdict.WithMetricsCollector(c))
	require.NoError(t, err)
	defer d.Close()

	reg, err := c.ObserveStats(d)
	require.NoError(t, err)

	require.NoError(t, d.AddTerminal(ctx, 1, 100))
	require.NoError(t, d.AddTerminal(ctx, 2, 200))
	_, err = d.AddBigram(ctx, 1, 2, 80)
	require.NoError(t, err)

	got := collect(t, reader)
	bigrams, ok := got["bigramdict.bigrams"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, bigrams.DataPoints, 1)
	assert.Equal(t, int64(1), bigrams.DataPoints[0].Value)

	content, ok := got["bigramdict.content.size"].(metricdata.Gauge[int64])
	require.True(t, ok)
	byKind := map[string]int64{}
	for _, dp := range content.DataPoints {
		v, _ := dp.Attributes.Value("kind")
		byKind[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"reachable": 9, "abandoned": 0}, byKind)

	require.NoError(t, reg.Unregister())
}
