package rag

import (
	"context"
	"fmt"

	"github.com/dshills/adaptive-rag-go/graph"
	"github.com/dshills/adaptive-rag-go/graph/emit"
	"github.com/dshills/adaptive-rag-go/graph/store"
)

// Workflow is the assembled Adaptive RAG engine plus the configuration a
// caller needs to start runs without re-wiring Collaborators each time
// (spec §4.F).
type Workflow struct {
	engine *graph.Engine[RunState]
	config WorkflowConfig
}

// NewWorkflow builds a Workflow from its collaborators, a checkpoint store,
// and an event emitter. policies and opts are forwarded to BuildEngine/
// graph.New unchanged; pass nil/none for engine defaults.
func NewWorkflow(
	c Collaborators,
	cfg WorkflowConfig,
	st store.Store[RunState],
	emitter emit.Emitter,
	policies map[string]*graph.NodePolicy,
	opts ...interface{},
) (*Workflow, error) {
	if c.Retriever == nil || c.LanguageModel == nil || c.WebSearch == nil {
		return nil, fmt.Errorf("%w: Retriever, LanguageModel, and WebSearch are all required", ErrInputInvalid)
	}
	eng, err := BuildEngine(c, cfg, st, emitter, policies, opts...)
	if err != nil {
		return nil, err
	}
	return &Workflow{engine: eng, config: cfg}, nil
}

// Start validates question/sessionID/maxRetries (falling back to the
// Workflow's configured defaults where the caller passes zero values),
// builds the initial RunState, and begins streaming.
//
// The returned channel follows graph.Engine.Stream's contract: it is
// never more than one Snapshot ahead of what the caller has read. Its last
// element has Done==true or Err!=nil, except when ctx is canceled or the
// backpressure timeout elapses: then the channel closes without a
// terminal snapshot.
func (w *Workflow) Start(ctx context.Context, runID, question, sessionID string, maxRetries int, history []string) (<-chan graph.Snapshot[RunState], error) {
	if maxRetries == 0 {
		maxRetries = w.config.MaxRetries
	}
	initial, err := NewInitialState(question, sessionID, maxRetries, history)
	if err != nil {
		return nil, err
	}
	return w.engine.Stream(ctx, runID, initial), nil
}

// Run drives Start to completion and returns the final RunState. If the
// stream closes without a terminal snapshot (a canceled run), Run returns
// the last state seen and a nil error.
func (w *Workflow) Run(ctx context.Context, runID, question, sessionID string, maxRetries int, history []string) (RunState, error) {
	stream, err := w.Start(ctx, runID, question, sessionID, maxRetries, history)
	if err != nil {
		return RunState{}, err
	}
	var final RunState
	var runErr error
	for snap := range stream {
		final = snap.State
		if snap.Err != nil {
			runErr = snap.Err
		}
	}
	return final, runErr
}

// Config returns the workflow's configured defaults.
func (w *Workflow) Config() WorkflowConfig {
	return w.config
}
