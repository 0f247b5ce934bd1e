// Package metrics exposes Prometheus counters for the task board: root and
// subtree fetches, cache hits, discarded stale responses, lifecycle actions,
// field patches and request latency of the reference service.
//
// A nil *Collector is valid and records nothing, so components take one
// optionally.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomePartial = "partial"
)

// Collector holds the task board metrics.
type Collector struct {
	rootFetches    prometheus.Counter
	subtreeFetches prometheus.Counter
	cacheHits      prometheus.Counter
	staleResponses prometheus.Counter

	lifecycleActions *prometheus.CounterVec
	patches          *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		rootFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_root_fetches_total",
			Help: "Total number of root page fetches",
		}),
		subtreeFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_subtree_fetches_total",
			Help: "Total number of child list fetches",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_subtree_cache_hits_total",
			Help: "Total number of expansions served from the subtree cache",
		}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_stale_responses_total",
			Help: "Total number of responses discarded because a newer request superseded them",
		}),
		lifecycleActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_lifecycle_actions_total",
			Help: "Total number of lifecycle actions by action and outcome",
		}, []string{"action", "outcome"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_patches_total",
			Help: "Total number of field patches by field and outcome",
		}, []string{"field", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "Request latency of the task service in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, col := range []prometheus.Collector{
		c.rootFetches,
		c.subtreeFetches,
		c.cacheHits,
		c.staleResponses,
		c.lifecycleActions,
		c.patches,
		c.requestDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// MustNewCollector is NewCollector that panics on registration errors.
func MustNewCollector(reg prometheus.Registerer) *Collector {
	c, err := NewCollector(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// RecordRootFetch counts a root page request.
func (c *Collector) RecordRootFetch() {
	if c == nil {
		return
	}
	c.rootFetches.Inc()
}

// RecordSubtreeFetch counts a child list request.
func (c *Collector) RecordSubtreeFetch() {
	if c == nil {
		return
	}
	c.subtreeFetches.Inc()
}

// RecordCacheHit counts an expansion that needed no request.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordStale counts a discarded response.
func (c *Collector) RecordStale() {
	if c == nil {
		return
	}
	c.staleResponses.Inc()
}

// RecordAction counts a lifecycle action.
func (c *Collector) RecordAction(action, outcome string) {
	if c == nil {
		return
	}
	c.lifecycleActions.WithLabelValues(action, outcome).Inc()
}

// RecordPatch counts a field patch.
func (c *Collector) RecordPatch(field, outcome string) {
	if c == nil {
		return
	}
	c.patches.WithLabelValues(field, outcome).Inc()
}

// ObserveRequest records the latency of one served request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
// A nil g serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
