// Package graph provides a small, generic state-graph execution engine.
package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection for
// graph execution in production. It is engine-level (not RAG-specific): it
// instruments any node/router by ID and labels series with the run ID, so
// the same metrics object works whether the node is "retrieve" or some
// other workflow's node entirely.
//
// Metrics exposed (all namespaced "ragengine"):
//
//  1. node_latency_ms (histogram): node execution duration.
//     Labels: run_id, node_id, status (success/error/timeout).
//  2. retries_total (counter): retry attempts per node.
//     Labels: run_id, node_id, reason.
//  3. loop_step (gauge): current loop_step value for an in-flight run.
//     Labels: run_id.
//  4. routing_decisions_total (counter): router label observed.
//     Labels: run_id, router_id, label.
//  5. checkpoint_write_failures_total (counter): non-fatal checkpoint
//     write failures.
//     Labels: run_id.
//  6. backpressure_events_total (counter): runs abandoned because the
//     consumer did not drain a snapshot within BackpressureTimeout.
//     Labels: run_id.
type PrometheusMetrics struct {
	nodeLatency         *prometheus.HistogramVec
	retries             *prometheus.CounterVec
	loopStep            *prometheus.GaugeVec
	routingDecisions    *prometheus.CounterVec
	checkpointFailures  *prometheus.CounterVec
	backpressure        *prometheus.CounterVec

	registry prometheus.Registerer
	mu       sync.RWMutex
	enabled  bool
}

// NewPrometheusMetrics creates and registers all graph execution metrics
// with the provided Prometheus registry. Pass nil to use the default global
// registry.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.nodeLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ragengine",
		Name:      "node_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
	}, []string{"run_id", "node_id", "status"})

	pm.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragengine",
		Name:      "retries_total",
		Help:      "Cumulative count of node retry attempts",
	}, []string{"run_id", "node_id", "reason"})

	pm.loopStep = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ragengine",
		Name:      "loop_step",
		Help:      "Current loop_step value of an in-flight run",
	}, []string{"run_id"})

	pm.routingDecisions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragengine",
		Name:      "routing_decisions_total",
		Help:      "Router label observed at a conditional edge",
	}, []string{"run_id", "router_id", "label"})

	pm.checkpointFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragengine",
		Name:      "checkpoint_write_failures_total",
		Help:      "Non-fatal checkpoint write failures",
	}, []string{"run_id"})

	pm.backpressure = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragengine",
		Name:      "backpressure_events_total",
		Help:      "Times a run was abandoned because the consumer did not drain a snapshot in time",
	}, []string{"run_id"})

	return pm
}

// RecordNodeLatency records the execution duration of a node.
func (pm *PrometheusMetrics) RecordNodeLatency(runID, nodeID string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.nodeLatency.WithLabelValues(runID, nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncrementRetries increments the retry counter for a node.
func (pm *PrometheusMetrics) IncrementRetries(runID, nodeID, reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.retries.WithLabelValues(runID, nodeID, reason).Inc()
}

// SetLoopStep sets the current loop_step gauge for a run.
func (pm *PrometheusMetrics) SetLoopStep(runID string, step int) {
	if !pm.isEnabled() {
		return
	}
	pm.loopStep.WithLabelValues(runID).Set(float64(step))
}

// RecordRoutingDecision records the label a router produced.
func (pm *PrometheusMetrics) RecordRoutingDecision(runID, routerID, label string) {
	if !pm.isEnabled() {
		return
	}
	pm.routingDecisions.WithLabelValues(runID, routerID, label).Inc()
}

// IncrementCheckpointFailures records a non-fatal checkpoint write failure.
func (pm *PrometheusMetrics) IncrementCheckpointFailures(runID string) {
	if !pm.isEnabled() {
		return
	}
	pm.checkpointFailures.WithLabelValues(runID).Inc()
}

// IncrementBackpressure records a consumer backpressure event.
func (pm *PrometheusMetrics) IncrementBackpressure(runID string) {
	if !pm.isEnabled() {
		return
	}
	pm.backpressure.WithLabelValues(runID).Inc()
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
