package cache

import "github.com/prometheus/client_golang/prometheus"

// collector exports Store statistics as Prometheus metrics. Values are read
// from a Stats snapshot on every scrape, so the store keeps a single set of
// counters.
type collector struct {
	store *Store

	hits         *prometheus.Desc
	misses       *prometheus.Desc
	expired      *prometheus.Desc
	entries      *prometheus.Desc
	autoCleanups *prometheus.Desc
	memory       *prometheus.Desc
}

// Collector returns a prometheus.Collector over the store's statistics.
// Register it once per store:
//
//	reg.MustRegister(store.Collector())
func (s *Store) Collector() prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName("metcatalog", "cache", n)
	}
	region := []string{"region"}

	return &collector{
		store:        s,
		hits:         prometheus.NewDesc(name("hits_total"), "Total number of cache hits", region, nil),
		misses:       prometheus.NewDesc(name("misses_total"), "Total number of cache misses", region, nil),
		expired:      prometheus.NewDesc(name("expired_total"), "Total number of entries removed after expiring", region, nil),
		entries:      prometheus.NewDesc(name("entries"), "Current number of stored entries, including stale ones", region, nil),
		autoCleanups: prometheus.NewDesc(name("auto_cleanups_total"), "Total number of size-triggered cleanup sweeps", nil, nil),
		memory:       prometheus.NewDesc(name("estimated_memory_kb"), "Estimated memory footprint in KB", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.expired
	ch <- c.entries
	ch <- c.autoCleanups
	ch <- c.memory
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.store.Stats()

	for _, r := range Regions {
		rs := st.Region(r)
		label := r.String()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(rs.Hits), label)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(rs.Misses), label)
		ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(rs.Expired), label)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(rs.Entries), label)
	}
	ch <- prometheus.MustNewConstMetric(c.autoCleanups, prometheus.CounterValue, float64(st.AutoCleanups))
	ch <- prometheus.MustNewConstMetric(c.memory, prometheus.GaugeValue, st.EstimatedMemoryKB)
}
