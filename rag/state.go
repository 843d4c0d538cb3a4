// Package rag implements the Adaptive RAG workflow: the node functions,
// router functions, and graph assembly that chain retrieval, relevance
// grading, generation, hallucination checking, and answer-quality grading
// into a bounded, self-correcting loop on top of the generic graph.Engine.
package rag

import (
	"github.com/google/uuid"
)

// Document is an immutable (text, metadata) pair. Documents are owned by
// the RunState for the duration of a run; nodes that produce new documents
// (retrieve, web_search) build new Document values rather than mutating
// existing ones.
type Document struct {
	Text     string
	Metadata map[string]string
}

// RunState is the single record carried across node transitions for one
// run (spec §3). The live Retriever/LanguageModel/WebSearchTool handles
// are deliberately not fields here — they are run-scoped collaborators
// held in Collaborators and closed over by BuildEngine, sidestepping the
// non-serializable-handle problem a checkpoint store would otherwise have
// to special-case.
type RunState struct {
	// Question is the user's original query. Immutable for the run.
	Question string

	// Documents is the ordered, relevance-ranked sequence of retrieved
	// chunks. May shrink (grade_documents filtering) or grow (web_search
	// appending).
	Documents []Document

	// Generation is the latest generated answer text. Empty until
	// generate has run at least once.
	Generation string

	// WebSearchNeeded is set by grade_documents: true iff every retrieved
	// document was filtered out as irrelevant.
	WebSearchNeeded bool

	// MaxRetries bounds the number of generate retries (loop_step <=
	// MaxRetries admits another retry). Immutable for the run, >= 1.
	MaxRetries int

	// LoopStep counts generate invocations. Monotonically non-decreasing;
	// merged by addition, never replacement.
	LoopStep int

	// GenerationCount is a supplemental counter (see original_source's
	// `answers` field) tracking total generate invocations. It moves in
	// lockstep with LoopStep in this implementation (both are
	// incremented only by generate), kept distinct so invariant 1 of
	// spec §8 ("generate invocations <= max_retries + 1") stays directly
	// assertable even if a future implementer splits the retry budget
	// per the §9 Open Question and the two counters diverge.
	GenerationCount int

	// SessionID is an opaque identifier used only by the checkpoint
	// store; it is never interpreted by node logic.
	SessionID string

	// HistoryMessages carries prior turns for multi-question sessions
	// against the same SessionID (original_source's `history_messages`).
	// Populated by the caller at init, never mutated by a node. Unused by
	// spec scenarios S1-S6; available to the RAG_ANSWER prompt as an
	// optional `{history}` placeholder.
	HistoryMessages []string
}

// mergeDelta implements graph.Reducer[RunState]: it merges a node's
// returned delta into the previous state.
//
// Convention: a delta is itself a RunState value. A field's zero value
// means "leave unchanged" for every field except LoopStep and
// GenerationCount, which always add (a delta of 0 is a legitimate "no
// increment" from a node that isn't generate). Documents uses nil-vs-
// non-nil rather than zero-value: a non-nil (possibly empty) slice
// replaces, nil leaves the prior documents alone — this lets
// grade_documents replace the set with an empty slice (all filtered out)
// without that being mistaken for "unchanged".
func mergeDelta(prev, delta RunState) RunState {
	next := prev

	if delta.Question != "" {
		next.Question = delta.Question
	}
	if delta.Documents != nil {
		next.Documents = delta.Documents
	}
	if delta.Generation != "" {
		next.Generation = delta.Generation
	}
	if delta.WebSearchNeeded {
		next.WebSearchNeeded = true
	}
	if delta.MaxRetries != 0 {
		next.MaxRetries = delta.MaxRetries
	}
	next.LoopStep += delta.LoopStep
	next.GenerationCount += delta.GenerationCount
	if delta.SessionID != "" {
		next.SessionID = delta.SessionID
	}
	if delta.HistoryMessages != nil {
		next.HistoryMessages = delta.HistoryMessages
	}

	return next
}

// NewSessionID generates a fresh, opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
