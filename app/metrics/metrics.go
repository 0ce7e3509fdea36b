// Package metrics exposes relay counters to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ModeSilent = "silent"
	ModeChatty = "chatty"
)

// Recorder is what the relay and the scheduler report to.
type Recorder interface {
	RecordPoll(mode string, duration time.Duration)
	RecordFetchFailure()
	RecordNewItems(count int)
	RecordPostEmitted()
	RecordEmitFailure()
	RecordPersistenceFailure()
	RecordEvicted(rows int64)
	SetFeeds(count int)
}

type Collector struct {
	polls               *prometheus.CounterVec
	fetchFailures       prometheus.Counter
	newItems            prometheus.Counter
	postsEmitted        prometheus.Counter
	emitFailures        prometheus.Counter
	persistenceFailures prometheus.Counter
	evictedRows         prometheus.Counter
	feeds               prometheus.Gauge
	pollDuration        prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rss_relay_polls_total",
			Help: "Feed polls by mode",
		}, []string{"mode"}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_fetch_failures_total",
			Help: "Feeds that could not be read",
		}),
		newItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_new_items_total",
			Help: "Items seen for the first time",
		}),
		postsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_posts_emitted_total",
			Help: "Posts delivered to channels",
		}),
		emitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_emit_failures_total",
			Help: "Posts that could not be delivered",
		}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_persistence_failures_total",
			Help: "Failed writes to the fingerprint store or state file",
		}),
		evictedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rss_relay_evicted_rows_total",
			Help: "Fingerprint rows removed by eviction",
		}),
		feeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rss_relay_feeds",
			Help: "Registered feeds",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rss_relay_poll_duration_seconds",
			Help:    "Duration of a single feed poll",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.polls,
		c.fetchFailures,
		c.newItems,
		c.postsEmitted,
		c.emitFailures,
		c.persistenceFailures,
		c.evictedRows,
		c.feeds,
		c.pollDuration,
	)

	return c
}

func (c *Collector) RecordPoll(mode string, duration time.Duration) {
	c.polls.WithLabelValues(mode).Inc()
	c.pollDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordFetchFailure() {
	c.fetchFailures.Inc()
}

func (c *Collector) RecordNewItems(count int) {
	c.newItems.Add(float64(count))
}

func (c *Collector) RecordPostEmitted() {
	c.postsEmitted.Inc()
}

func (c *Collector) RecordEmitFailure() {
	c.emitFailures.Inc()
}

func (c *Collector) RecordPersistenceFailure() {
	c.persistenceFailures.Inc()
}

func (c *Collector) RecordEvicted(rows int64) {
	c.evictedRows.Add(float64(rows))
}

func (c *Collector) SetFeeds(count int) {
	c.feeds.Set(float64(count))
}

// Handler serves the metrics of gatherer in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordPoll(string, time.Duration) {}
func (Nop) RecordFetchFailure()              {}
func (Nop) RecordNewItems(int)               {}
func (Nop) RecordPostEmitted()               {}
func (Nop) RecordEmitFailure()               {}
func (Nop) RecordPersistenceFailure()        {}
func (Nop) RecordEvicted(int64)              {}
func (Nop) SetFeeds(int)                     {}
