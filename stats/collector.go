package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes an Aggregator to prometheus. Values are read from a snapshot on every
// scrape, so the aggregator stays the single source of truth.
type Collector struct {
	agg     *Aggregator
	calls   *prometheus.Desc
	elapsed *prometheus.Desc
	average *prometheus.Desc
}

func NewCollector(agg *Aggregator, namespace string) *Collector {
	return &Collector{
		agg: agg,
		calls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "calls_total"),
			"Total number of RPC calls by outcome (count)",
			[]string{"call_key", "outcome"}, nil,
		),
		elapsed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "call_elapsed_milliseconds_total"),
			"Sum of RPC call wall-clock durations in milliseconds",
			[]string{"call_key"}, nil,
		),
		average: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "call_average_milliseconds"),
			"Average RPC call duration in milliseconds",
			[]string{"call_key"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.calls
	ch <- c.elapsed
	ch <- c.average
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for key, e := range c.agg.Snapshot() {
		k := string(key)
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(e.Successes), k, "success")
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(e.Errors), k, "error")
		ch <- prometheus.MustNewConstMetric(c.elapsed, prometheus.CounterValue, float64(e.TotalElapsed.Milliseconds()), k)
		ch <- prometheus.MustNewConstMetric(c.average, prometheus.GaugeValue, e.AverageMillis(), k)
	}
}
