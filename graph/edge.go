package graph

import "context"

// Edge represents a connection between two nodes in the workflow graph.
//
// Edges define the control flow between nodes. They can be:
// - Unconditional: Always traverse (When = nil).
// - Conditional: Only traverse if predicate returns true (When != nil).
//
// Engine does not consume Edge or Predicate values: its transitions are
// registered with Engine.Connect (static) and Engine.ConnectConditional /
// Engine.SetConditionalEntry (Router-selected).
//
// For explicit routing, nodes can return a Next in NodeResult.Route, which
// overrides the registered edges.
//
// Type parameter S is the state type used for predicate evaluation.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional predicate that determines if this edge should be traversed.
	// If nil, the edge is unconditional (always traverse).
	// If non-nil, the edge is only traversed when When(state) returns true.
	When Predicate[S]
}

// Predicate is a function that evaluates state to determine if an edge should be traversed.
//
// Predicates enable conditional routing based on workflow state.
// They should be pure functions (deterministic, no side effects).
//
// Common patterns:
// - Threshold: state.Score > 0.8.
// - Presence: state.Result != "".
// - Boolean flag: state.IsReady.
// - Complex logic: state.Retries < 3 && state.Error == nil.
//
// Type parameter S is the state type to evaluate.
type Predicate[S any] func(state S) bool

// Router is a classifier function used for label-based conditional routing:
// it inspects state and returns a discrete label. The engine looks the
// label up in a route map supplied at graph-construction time (see
// Engine.ConnectConditional and Engine.SetConditionalEntry) to find the
// successor node ID. Router takes a context because classification may
// itself be a suspension point (e.g. an LLM call deciding which datasource
// to route to) — the same cancellation contract as Node.Run.
//
// This is the Go-typed counterpart of a tagged-enum router: callers should
// return one of a small closed set of label strings, and the route map
// passed alongside the Router should cover that set exhaustively. An
// unmapped label is an EngineError at run time, not a silent no-op.
type Router[S any] func(ctx context.Context, state S) string

