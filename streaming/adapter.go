package streaming

import (
	"context"
	"errors"
	"html"
	"time"

	"github.com/dshills/adaptive-rag-go/graph"
	"github.com/dshills/adaptive-rag-go/rag"
)

// DefaultDocumentTruncateCount is the "first N (<= 5)" default from
// spec §4.G when a caller doesn't specify one.
const DefaultDocumentTruncateCount = 5

// Adapter converts a <-chan graph.Snapshot[rag.RunState] (as produced by
// rag.Workflow.Start) into the six-kind external event stream. All
// user-visible text is HTML-escaped before it reaches Payload, since the
// consumer is assumed to be a browser-facing SSE stream.
type Adapter struct {
	// DocumentTruncateCount bounds how many documents the "documents"
	// event includes. Defaults to DefaultDocumentTruncateCount if <= 0.
	DocumentTruncateCount int
}

// NewAdapter builds an Adapter with the given document-event truncation
// count (pass 0 for the documented default of 5).
func NewAdapter(documentTruncateCount int) *Adapter {
	if documentTruncateCount <= 0 {
		documentTruncateCount = DefaultDocumentTruncateCount
	}
	return &Adapter{DocumentTruncateCount: documentTruncateCount}
}

// Run drains snapshots and emits the external event sequence. The
// returned channel is closed once a done or error event has been sent, or
// immediately if ctx is canceled first. question is the original user
// question, emitted verbatim (escaped) in the start event.
func (a *Adapter) Run(ctx context.Context, question string, snapshots <-chan graph.Snapshot[rag.RunState]) <-chan Event {
	out := make(chan Event, 1)
	go a.run(ctx, question, snapshots, out)
	return out
}

func (a *Adapter) run(ctx context.Context, question string, snapshots <-chan graph.Snapshot[rag.RunState], out chan<- Event) {
	defer close(out)

	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(Event{Kind: KindStart, Payload: map[string]interface{}{
		"question":  html.EscapeString(question),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}}) {
		return
	}

	var lastGeneration string
	var lastLoopStep int = -1
	lastNodeID := ""
	documentsEmitted := false

	for snap := range snapshots {
		if snap.Err != nil {
			send(Event{Kind: KindError, Payload: map[string]interface{}{
				"error":   errorCode(snap.Err),
				"message": html.EscapeString(snap.Err.Error()),
			}})
			return
		}

		state := snap.State

		// "workflow_step" fires whenever loop_step changes or a router
		// label is observed (spec §4.G); a change in which node just ran
		// is the direct on-the-wire evidence of a router decision, so it
		// is the trigger condition along with loop_step. The terminal
		// snapshot (snap.Done) is covered by "done" instead, not this.
		if !snap.Done && (state.LoopStep != lastLoopStep || snap.NodeID != lastNodeID) {
			if !send(Event{Kind: KindWorkflowStep, Payload: map[string]interface{}{
				"loop_step":         state.LoopStep,
				"web_search_needed": state.WebSearchNeeded,
				"node":              snap.NodeID,
			}}) {
				return
			}
			lastLoopStep = state.LoopStep
			lastNodeID = snap.NodeID
		}

		if !documentsEmitted && len(state.Documents) > 0 {
			limit := a.DocumentTruncateCount
			if limit > len(state.Documents) {
				limit = len(state.Documents)
			}
			texts := make([]string, limit)
			for i := 0; i < limit; i++ {
				texts[i] = html.EscapeString(state.Documents[i].Text)
			}
			if !send(Event{Kind: KindDocuments, Payload: map[string]interface{}{"documents": texts}}) {
				return
			}
			documentsEmitted = true
		}

		if state.Generation != lastGeneration {
			if !send(Event{Kind: KindChunk, Payload: map[string]interface{}{
				"text": html.EscapeString(chunkSuffix(lastGeneration, state.Generation)),
			}}) {
				return
			}
			lastGeneration = state.Generation
		}

		if snap.Done {
			send(Event{Kind: KindDone, Payload: map[string]interface{}{
				"final_answer": html.EscapeString(state.Generation),
				"status":       "completed",
			}})
			return
		}
	}
}

// chunkSuffix returns the incremental new text in next relative to prev:
// if next extends prev, only the appended tail; otherwise (a full retry
// that produced shorter or divergent text) next is emitted whole.
func chunkSuffix(prev, next string) string {
	if len(next) >= len(prev) && next[:len(prev)] == prev {
		return next[len(prev):]
	}
	return next
}

func errorCode(err error) string {
	var engErr *graph.EngineError
	if errors.As(err, &engErr) {
		return string(engErr.Code)
	}
	return ""
}
