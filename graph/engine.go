// Package graph provides a small, generic state-graph execution engine.
package graph

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dshills/adaptive-rag-go/graph/emit"
	"github.com/dshills/adaptive-rag-go/graph/store"
)

// Options configures an Engine. It can be passed directly to New, or built
// up through the functional Option helpers (WithMaxSteps, WithMetrics, ...);
// the two styles compose, with later Option values overriding fields an
// Options struct already set.
type Options struct {
	// MaxSteps caps the number of node transitions in a single run. Zero
	// means unlimited (the graph's own topology is relied on to terminate).
	MaxSteps int

	// DefaultNodeTimeout bounds node execution when the node's own
	// NodePolicy does not specify a Timeout. Zero means unlimited.
	DefaultNodeTimeout time.Duration

	// RunWallClockBudget bounds the entire run. Zero means unlimited.
	RunWallClockBudget time.Duration

	// BackpressureTimeout bounds how long the engine waits for the
	// consumer to drain a snapshot. When it elapses the run is abandoned
	// and the channel is closed without a terminal snapshot; no error
	// value is delivered. Zero means wait indefinitely.
	BackpressureTimeout time.Duration

	Metrics     *PrometheusMetrics
	CostTracker *CostTracker
}

// conditionalRoute pairs a Router with the label→successor map the engine
// consults after calling it.
type conditionalRoute[S any] struct {
	router Router[S]
	routes map[string]string
}

// Snapshot is one value in the sequence a Stream produces: the state after
// a node transition, or a terminal error. A run that completes or fails sends
// a last Snapshot with Done==true or Err!=nil. A run abandoned because ctx
// was canceled (including an exhausted RunWallClockBudget) or because
// BackpressureTimeout elapsed closes the channel without such a snapshot.
type Snapshot[S any] struct {
	Step   int
	NodeID string
	State  S
	Done   bool
	Err    error
}

// Engine drives a compiled graph: nodes, static edges, and Router-selected
// conditional edges (including a conditional entry point), over a single
// state type S. A run executes as one cooperative goroutine — there is no
// intra-run node parallelism — matching the "single cooperative task"
// scheduling model that nodes calling out to a Retriever/LanguageModel/web
// search tool are written against.
type Engine[S any] struct {
	mu sync.RWMutex

	reducer Reducer[S]
	store   store.Store[S]
	emitter emit.Emitter
	opts    Options

	nodes        map[string]Node[S]
	policies     map[string]*NodePolicy
	staticEdges  map[string]string
	conditionals map[string]conditionalRoute[S]

	startNode   string
	entryRouter Router[S]
	entryRoutes map[string]string

	rng *rand.Rand
}

// New creates an Engine. options may contain a single Options struct, any
// number of Option functional values, or a mix of both (functional options
// are applied after the struct and therefore win on overlapping fields).
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, options ...interface{}) *Engine[S] {
	cfg := &engineConfig{}
	for _, o := range options {
		switch v := o.(type) {
		case Options:
			cfg.opts = v
		case Option:
			_ = v(cfg)
		}
	}

	return &Engine[S]{
		reducer:      reducer,
		store:        st,
		emitter:      emitter,
		opts:         cfg.opts,
		nodes:        make(map[string]Node[S]),
		policies:     make(map[string]*NodePolicy),
		staticEdges:  make(map[string]string),
		conditionals: make(map[string]conditionalRoute[S]),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter only, not security sensitive
	}
}

// Add registers a node under nodeID, with an optional execution policy
// (timeout/retry override). Passing nil for policy uses engine defaults.
func (e *Engine[S]) Add(nodeID string, node Node[S], policy *NodePolicy) error {
	if e == nil {
		return &EngineError{Message: "nil engine"}
	}
	if nodeID == "" {
		return &EngineError{Message: "node ID must not be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node must not be nil", NodeID: nodeID}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{Message: "duplicate node ID", NodeID: nodeID}
	}
	e.nodes[nodeID] = node
	if policy != nil {
		e.policies[nodeID] = policy
	}
	return nil
}

// StartAt sets an unconditional entry point: every run begins at nodeID.
// Mutually exclusive with SetConditionalEntry.
func (e *Engine[S]) StartAt(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nodes[nodeID]; !ok {
		return &EngineError{Message: "start node not registered", NodeID: nodeID}
	}
	e.startNode = nodeID
	e.entryRouter = nil
	return nil
}

// SetConditionalEntry sets a classifier-selected entry point: router is
// invoked with the run's initial state, and its label is looked up in
// routes to find the first node to execute. Mutually exclusive with
// StartAt.
func (e *Engine[S]) SetConditionalEntry(router Router[S], routes map[string]string) error {
	if router == nil {
		return &EngineError{Message: "conditional entry router must not be nil"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for label, nodeID := range routes {
		if _, ok := e.nodes[nodeID]; !ok {
			return &EngineError{Message: fmt.Sprintf("entry route %q targets unregistered node", label), NodeID: nodeID}
		}
	}
	e.entryRouter = router
	e.entryRoutes = routes
	e.startNode = ""
	return nil
}

// Connect adds an unconditional (static) edge: after from completes without
// an explicit Route, the engine proceeds to to. A node's outgoing edge is
// either this static edge or a ConnectConditional router, not both —
// Stream always prefers an explicit NodeResult.Route over either.
func (e *Engine[S]) Connect(from, to string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nodes[from]; !ok {
		return &EngineError{Message: "edge source not registered", NodeID: from}
	}
	if _, ok := e.nodes[to]; !ok {
		return &EngineError{Message: "edge destination not registered", NodeID: to}
	}
	e.staticEdges[from] = to
	return nil
}

// ConnectConditional adds a label-routed conditional edge out of from:
// router is invoked with the state after from's delta is merged, and its
// label is looked up in routes to find the successor.
func (e *Engine[S]) ConnectConditional(from string, router Router[S], routes map[string]string) error {
	if router == nil {
		return &EngineError{Message: "conditional router must not be nil", NodeID: from}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nodes[from]; !ok {
		return &EngineError{Message: "conditional edge source not registered", NodeID: from}
	}
	for label, nodeID := range routes {
		if _, ok := e.nodes[nodeID]; !ok {
			return &EngineError{Message: fmt.Sprintf("conditional route %q targets unregistered node", label), NodeID: nodeID}
		}
	}
	e.conditionals[from] = conditionalRoute[S]{router: router, routes: routes}
	return nil
}

// Stream drives the graph to completion, publishing one Snapshot per node
// transition on the returned channel. The channel is never more than one
// element ahead of what the consumer has read (a size-1 buffer): the engine
// blocks producing the next snapshot until the current one is drained,
// which is the "single-snapshot-ahead" backpressure contract (spec §4.F,
// §9). The channel is closed after the terminal snapshot (Done or Err) is
// sent, or if ctx is canceled first — per spec §5, a canceled consumer gets
// no further events at all, not even a final error.
func (e *Engine[S]) Stream(ctx context.Context, runID string, initial S) <-chan Snapshot[S] {
	out := make(chan Snapshot[S], 1)
	go e.run(ctx, runID, initial, out)
	return out
}

// Run drains Stream to completion and returns the final state. It is a
// convenience wrapper for callers that don't need incremental snapshots.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var final S
	var err error
	for snap := range e.Stream(ctx, runID, initial) {
		final = snap.State
		if snap.Err != nil {
			err = snap.Err
		}
	}
	return final, err
}

func (e *Engine[S]) run(ctx context.Context, runID string, initial S, out chan<- Snapshot[S]) {
	defer close(out)

	if e.opts.RunWallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunWallClockBudget)
		defer cancel()
	}

	state := initial
	currentNode, err := e.resolveEntry(ctx, state)
	if err != nil {
		e.publish(ctx, runID, out, Snapshot[S]{State: state, Err: err})
		return
	}

	step := 0
	for {
		if ctx.Err() != nil {
			// Consumer canceled or wall-clock budget exceeded: abandon the
			// run silently, per spec §5 — no error/done event is emitted on
			// an already-closed stream.
			return
		}

		if e.opts.MaxSteps > 0 && step >= e.opts.MaxSteps {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, State: state, Err: &EngineError{
				Message: fmt.Sprintf("exceeded max steps (%d)", e.opts.MaxSteps),
				Code:    CodeMaxStepsExceeded,
				Cause:   ErrMaxStepsExceeded,
			}})
			return
		}

		e.mu.RLock()
		node := e.nodes[currentNode]
		policy := e.policies[currentNode]
		e.mu.RUnlock()
		if node == nil {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, State: state, Err: &EngineError{
				Message: "node not registered", NodeID: currentNode,
			}})
			return
		}

		result, nodeErr := e.executeWithRetry(ctx, node, currentNode, state, policy, runID)
		if nodeErr != nil {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state, Err: nodeErr})
			return
		}
		if result.Err != nil {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state, Err: result.Err})
			return
		}

		state = e.reducer(state, result.Delta)
		step++

		if e.store != nil {
			if err := e.store.SaveStep(ctx, runID, step, currentNode, state); err != nil {
				if e.emitter != nil {
					e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: currentNode, Msg: "checkpoint write failed", Meta: map[string]interface{}{"error": err.Error()}})
				}
				if e.opts.Metrics != nil {
					e.opts.Metrics.IncrementCheckpointFailures(runID)
				}
				// Non-fatal: spec §7 CheckpointWriteFailure disposition is
				// "logged, not fatal" — the run continues.
			}
		}

		if result.Route.Terminal {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state, Done: true})
			return
		}

		next, routeErr := e.resolveNext(ctx, currentNode, result, state, runID)
		if routeErr != nil {
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state, Err: routeErr})
			return
		}
		if next == "" {
			// No explicit route, no registered edge: treat as terminal.
			e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state, Done: true})
			return
		}

		if !e.publish(ctx, runID, out, Snapshot[S]{Step: step, NodeID: currentNode, State: state}) {
			return
		}
		currentNode = next
	}
}

func (e *Engine[S]) resolveEntry(ctx context.Context, state S) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.entryRouter != nil {
		label := e.entryRouter(ctx, state)
		nodeID, ok := e.entryRoutes[label]
		if !ok {
			return "", &EngineError{Message: fmt.Sprintf("conditional entry produced unmapped label %q", label), Code: CodeUnknownRoute, Cause: ErrUnknownRoute}
		}
		return nodeID, nil
	}
	if e.startNode == "" {
		return "", &EngineError{Message: "no entry point configured (call StartAt or SetConditionalEntry)"}
	}
	return e.startNode, nil
}

func (e *Engine[S]) resolveNext(ctx context.Context, currentNode string, result NodeResult[S], state S, runID string) (string, error) {
	if result.Route.To != "" {
		return result.Route.To, nil
	}
	e.mu.RLock()
	cond, hasCond := e.conditionals[currentNode]
	to, hasStatic := e.staticEdges[currentNode]
	e.mu.RUnlock()
	if hasCond {
		label := cond.router(ctx, state)
		nodeID, ok := cond.routes[label]
		if !ok {
			return "", &EngineError{Message: fmt.Sprintf("router at %s produced unmapped label %q", currentNode, label), NodeID: currentNode, Code: CodeUnknownRoute, Cause: ErrUnknownRoute}
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordRoutingDecision(runID, currentNode, label)
		}
		return nodeID, nil
	}
	if hasStatic {
		return to, nil
	}
	return "", nil
}

// executeWithRetry wraps executeNodeWithTimeout with the node's RetryPolicy,
// if any: on a retryable error it backs off (computeBackoff) and tries
// again, up to RetryPolicy.MaxAttempts total attempts.
func (e *Engine[S]) executeWithRetry(ctx context.Context, node Node[S], nodeID string, state S, policy *NodePolicy, runID string) (NodeResult[S], error) {
	maxAttempts := 1
	var retry *RetryPolicy
	if policy != nil && policy.RetryPolicy != nil {
		retry = policy.RetryPolicy
		if retry.MaxAttempts > 0 {
			maxAttempts = retry.MaxAttempts
		}
	}

	var lastErr error
	var lastResult NodeResult[S]
	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		result, timeoutErr := executeNodeWithTimeout(ctx, node, nodeID, state, policy, e.opts.DefaultNodeTimeout)
		status := "success"
		if timeoutErr != nil || result.Err != nil {
			status = "error"
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordNodeLatency(runID, nodeID, time.Since(start), status)
		}

		err := timeoutErr
		if err == nil {
			err = result.Err
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		lastResult = result
		if retry == nil || retry.Retryable == nil || !retry.Retryable(err) || attempt == maxAttempts-1 {
			break
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.IncrementRetries(runID, nodeID, "error")
		}
		delay := computeBackoff(attempt, retry.BaseDelay, retry.MaxDelay, e.rng)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastResult, ctx.Err()
		}
	}
	return lastResult, lastErr
}

// publish sends snap on out, honoring BackpressureTimeout and context
// cancellation. It returns false if the snapshot could not be delivered
// (the run must stop in that case).
func (e *Engine[S]) publish(ctx context.Context, runID string, out chan<- Snapshot[S], snap Snapshot[S]) bool {
	if e.opts.BackpressureTimeout > 0 {
		timer := time.NewTimer(e.opts.BackpressureTimeout)
		defer timer.Stop()
		select {
		case out <- snap:
			return true
		case <-timer.C:
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncrementBackpressure(runID)
			}
			return false
		case <-ctx.Done():
			return false
		}
	}
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
