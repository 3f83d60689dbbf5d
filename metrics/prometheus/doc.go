// Package prometheus exports dictionary metrics to Prometheus.
//
// Collector implements bigramdict.MetricsCollector and turns every recorded
// operation into counters and histograms. StatsCollector reports the
// dictionary's Stats as gauges at scrape time.
//
//	reg := prometheus.NewRegistry()
//	mc := bigramprom.NewCollector(reg)
//	dict, _ := bigramdict.New(bigramdict.WithMetricsCollector(mc))
//	reg.MustRegister(bigramprom.NewStatsCollector(dict))
package prometheus
