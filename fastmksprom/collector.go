// Package fastmksprom provides a Prometheus-backed implementation of
// fastmks.MetricsCollector.
package fastmksprom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/fastmks"
)

// Collector implements fastmks.MetricsCollector with Prometheus counters
// and histograms.
type Collector struct {
	buildsTotal   *prometheus.CounterVec
	buildSeconds  prometheus.Histogram
	searchesTotal *prometheus.CounterVec
	searchSeconds *prometheus.HistogramVec
	searchK       prometheus.Histogram
}

// New creates a Collector and registers its metrics with reg. If reg is
// nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fastmks_builds_total",
				Help: "Total number of reference tree builds",
			},
			[]string{"status"},
		),
		buildSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fastmks_build_seconds",
				Help:    "Latency of reference tree builds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fastmks_searches_total",
				Help: "Total number of search operations by traversal mode",
			},
			[]string{"mode", "status"},
		),
		searchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fastmks_search_seconds",
				Help:    "Latency of search operations by traversal mode",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"mode"},
		),
		searchK: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fastmks_search_k",
				Help:    "Requested number of results per search",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}

	for _, col := range []prometheus.Collector{
		c.buildsTotal, c.buildSeconds, c.searchesTotal, c.searchSeconds, c.searchK,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordBuild implements fastmks.MetricsCollector.
func (c *Collector) RecordBuild(points int, duration time.Duration, err error) {
	c.buildsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.buildSeconds.Observe(duration.Seconds())
	}
}

// RecordSearch implements fastmks.MetricsCollector.
func (c *Collector) RecordSearch(mode fastmks.Mode, k int, duration time.Duration, err error) {
	c.searchesTotal.WithLabelValues(mode.String(), status(err)).Inc()
	if err == nil {
		c.searchSeconds.WithLabelValues(mode.String()).Observe(duration.Seconds())
		c.searchK.Observe(float64(k))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
