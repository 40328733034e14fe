// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package metrics holds the prometheus metrics for policy queries and snapshot loads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	labelQuery    = "query"
	labelDecision = "decision"
	labelResult   = "result"
	labelKind     = "kind"

	QueryCanI       = "can_i"
	QueryCanConnect = "can_connect"
	QueryWhoCan     = "who_can"
	QuerySelectPods = "select_pods"

	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
	DecisionInvalid = "invalid"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policyq_queries_total",
		Help: "The total number of policy queries broken down by query type and decision",
	}, []string{labelQuery, labelDecision})
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "policyq_query_duration_seconds",
		Help:    "The time taken to evaluate a policy query",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{labelQuery})
	snapshotLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policyq_snapshot_loads_total",
		Help: "The total number of snapshot loads broken down by result",
	}, []string{labelResult})
	snapshotObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "policyq_snapshot_objects",
		Help: "The number of objects of each kind in the current snapshot",
	}, []string{labelKind})
	snapshotTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "policyq_snapshot_load_timestamp_seconds",
		Help: "The time the current snapshot was loaded",
	})
)

// RegisterMetricsWith registers the metrics with the registerer.
func RegisterMetricsWith(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{queries, queryDuration, snapshotLoads, snapshotObjects, snapshotTimestamp} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveQuery records a completed query.
func ObserveQuery(query, decision string, start time.Time) {
	queries.WithLabelValues(query, decision).Inc()
	queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// Decision returns the decision label for an allowed flag.
func Decision(allowed bool) string {
	if allowed {
		return DecisionAllowed
	}
	return DecisionDenied
}

// ObserveSnapshotFailure records a snapshot that failed to load.
func ObserveSnapshotFailure() {
	snapshotLoads.WithLabelValues(ResultFailure).Inc()
}

// ObserveSnapshot records a successfully loaded snapshot and the number of objects of each kind in it.
func ObserveSnapshot(counts map[string]int) {
	snapshotLoads.WithLabelValues(ResultSuccess).Inc()
	for kind, n := range counts {
		snapshotObjects.WithLabelValues(kind).Set(float64(n))
	}
	snapshotTimestamp.SetToCurrentTime()
}

// NewCollector creates a new instance of a metrics collector, registering the metrics with a new registry.
func NewCollector() (Collector, error) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetricsWith(reg); err != nil {
		return nil, err
	}
	return &collector{registry: reg}, nil
}

// Collector provides an interface for a prometheus metrics collector.
type Collector interface {
	// Handler returns the handler exposing the metrics.
	Handler() http.Handler
}

type collector struct {
	registry *prometheus.Registry
}

func (c *collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
