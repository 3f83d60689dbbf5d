package prometheus

import (
	"github.com/hupe1980/bigramdict"
	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsSource provides dictionary statistics. *bigramdict.Dictionary
// implements it.
type StatsSource interface {
	Stats() bigramdict.Stats
}

type gauge struct {
	desc  *prom.Desc
	value func(bigramdict.Stats) float64
}

// StatsCollector is a prometheus.Collector that reads Stats on every scrape.
type StatsCollector struct {
	src    StatsSource
	gauges []gauge
}

var _ prom.Collector = (*StatsCollector)(nil)

// NewStatsCollector returns a collector for src. Register it with a registry.
func NewStatsCollector(src StatsSource) *StatsCollector {
	return &StatsCollector{
		src: src,
		gauges: []gauge{
			{desc(namespace+"_terminals", "Terminals with a bound node position."),
				func(s bigramdict.Stats) float64 { return float64(s.Terminals) }},
			{desc(namespace+"_lists", "Terminals owning a bigram list."),
				func(s bigramdict.Stats) float64 { return float64(s.Lists) }},
			{desc(namespace+"_bigrams", "Live bigrams."),
				func(s bigramdict.Stats) float64 { return float64(s.Bigrams) }},
			{desc(namespace+"_content_bytes", "Size of the bigram content region."),
				func(s bigramdict.Stats) float64 { return float64(s.ContentBytes) }},
			{desc(namespace+"_reachable_bytes", "Content bytes reachable from a list head."),
				func(s bigramdict.Stats) float64 { return float64(s.ReachableBytes) }},
			{desc(namespace+"_abandoned_bytes", "Content bytes orphaned by list growth."),
				func(s bigramdict.Stats) float64 { return float64(s.AbandonedBytes) }},
			{desc(namespace+"_lsn", "Last applied log sequence number."),
				func(s bigramdict.Stats) float64 { return float64(s.LSN) }},
			{desc(namespace+"_version", "Last committed snapshot version."),
				func(s bigramdict.Stats) float64 { return float64(s.Version) }},
			{desc(namespace+"_wal_records", "Records in the write-ahead log."),
				func(s bigramdict.Stats) float64 { return float64(s.WALRecords) }},
			{desc(namespace+"_wal_bytes", "Size of the write-ahead log."),
				func(s bigramdict.Stats) float64 { return float64(s.WALBytes) }},
		},
	}
}

func desc(name, help string) *prom.Desc {
	return prom.NewDesc(name, help, nil, nil)
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prom.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prom.Metric) {
	s := c.src.Stats()
	for _, g := range c.gauges {
		ch <- prom.MustNewConstMetric(g.desc, prom.GaugeValue, g.value(s))
	}
}
