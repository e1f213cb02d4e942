// Package prometheus exposes the engine's counters as a Prometheus
// collector.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/accountforge/authcore"
)

const namespace = "authcore"

type metricsSource interface {
	Metrics() *authcore.Metrics
	EventsDropped() uint64
}

// Collector adapts the engine's counter core to the Prometheus
// registration model. Values are read on every scrape; nothing is
// double-counted.
type Collector struct {
	source  metricsSource
	descs   map[authcore.MetricID]*prometheus.Desc
	dropped *prometheus.Desc
}

// NewCollector creates a collector reading from the given engine.
func NewCollector(engine *authcore.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a collector from any metrics source.
func NewCollectorFromSource(source metricsSource) *Collector {
	descs := make(map[authcore.MetricID]*prometheus.Desc)
	for _, id := range authcore.MetricIDs() {
		descs[id] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", id.Name()),
			"Engine counter "+id.Name()+".",
			nil, nil,
		)
	}
	return &Collector{
		source: source,
		descs:  descs,
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_dropped_total"),
			"Events discarded by the dispatcher under backpressure.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Metrics().Snapshot()
	for id, desc := range c.descs {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snap.Counters[id]))
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.EventsDropped()))
}

// Handler returns an http.Handler serving the collector on a dedicated
// registry, for mounting at /metrics.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
