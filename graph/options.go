// Package graph provides a small, generic state-graph execution engine.
package graph

import "time"

// Option is a functional option for configuring an Engine.
//
// Functional options provide a clean, extensible API for engine configuration:
//   - Chainable: engine := New(reducer, store, emitter, WithMaxSteps(50), WithDefaultNodeTimeout(10*time.Second))
//   - Self-documenting: Option names clearly describe their purpose.
//   - Optional: only specify the configuration you need.
//   - Backward compatible: an Options struct can still be passed directly.
//
// Options can be mixed with the Options struct:
//
//	opts := graph.Options{MaxSteps: 100}
//	engine := graph.New(reducer, store, emitter, opts, graph.WithDefaultNodeTimeout(5*time.Second))
type Option func(*engineConfig) error

// engineConfig is an internal struct used to collect options before applying them to an Engine.
// This indirection allows validation and composition of options.
type engineConfig struct {
	opts Options
}

// WithMaxSteps limits workflow execution to prevent infinite loops.
//
// Default: 0 (no limit, use with caution).
//
// The RAG workflow is bounded by construction (every cycle passes through
// generate, which strictly increments loop_step until it exceeds
// max_retries — see rag.BuildEngine), but MaxSteps remains a second,
// independent backstop against a misconfigured or hand-rolled graph.
//
// When MaxSteps is exceeded, Run/Stream report an EngineError with
// Code == CodeMaxStepsExceeded.
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.MaxSteps = n
		return nil
	}
}

// WithDefaultNodeTimeout sets the maximum execution time for nodes without
// an explicit NodePolicy.Timeout.
//
// Default: 0 (unlimited). Individual nodes can override via NodePolicy.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.DefaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget sets the maximum total execution time for a run.
//
// Default: 0 (disabled — the run proceeds until completion or MaxSteps).
func WithRunWallClockBudget(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.RunWallClockBudget = d
		return nil
	}
}

// WithBackpressureTimeout bounds how long the engine waits for the consumer
// to drain the previous snapshot before giving up: the run is abandoned and
// its channel closed without a terminal snapshot or error.
//
// Default: 0 (wait indefinitely — the engine blocks on the 1-element
// snapshot channel, which is the documented "never more than one snapshot
// ahead" contract).
func WithBackpressureTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.BackpressureTimeout = d
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine := graph.New(reducer, store, emitter, graph.WithMetrics(metrics))
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.Metrics = metrics
		return nil
	}
}

// WithCostTracker enables LLM cost tracking with static per-model pricing.
//
// Example:
//
//	tracker := graph.NewCostTracker("run-123", "USD")
//	engine := graph.New(reducer, store, emitter, graph.WithCostTracker(tracker))
func WithCostTracker(tracker *CostTracker) Option {
	return func(cfg *engineConfig) error {
		cfg.opts.CostTracker = tracker
		return nil
	}
}
