// Package graph provides a small, generic state-graph execution engine:
// nodes are pure functions from state to a state delta, edges (static, or
// conditional with a Router choosing a label) pick the next node, and a Reducer merges each delta
// into the running state. Concrete workflows (see package rag) instantiate
// the generic types with their own state type.
package graph

// Reducer merges a delta produced by a node into the previous state,
// returning the new state. Reducers must be deterministic: the same
// (prev, delta) pair always yields the same result.
//
// The conventional merge rule is field-wise replacement — a delta's zero
// value means "leave unchanged" — with the exception of fields meant to
// accumulate across the run (a step counter, a retry counter), which the
// reducer should add rather than replace. See rag.mergeDelta for a worked
// example: every RunState field replaces-if-present except LoopStep and
// GenerationCount, which sum.
type Reducer[S any] func(prev S, delta S) S
