package rag

import (
	"fmt"
)

// WorkflowConfig carries RAG-specific tunables that aren't part of the
// generic graph.Options (spec §6's initial-call payload, plus knobs the
// streaming adapter needs).
type WorkflowConfig struct {
	// MaxRetries bounds generate retries (1..5, default 3 — spec §6).
	MaxRetries int

	// RetrieverTopK is passed unchanged as topK to the WebSearchTool by
	// the web_search node. The Retriever interface takes no count, so the
	// number of documents retrieved is set by the retriever itself.
	RetrieverTopK int

	// DocumentEventTruncateCount bounds how many documents the streaming
	// adapter's "documents" event includes (spec §4.G: "first N (<=5)").
	DocumentEventTruncateCount int
}

// DefaultWorkflowConfig returns the documented defaults.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MaxRetries:                 3,
		RetrieverTopK:              4,
		DocumentEventTruncateCount: 5,
	}
}

// NewInitialState validates the caller-supplied question/session/retry
// inputs (spec §6's initial-call payload) and builds the RunState a run
// starts from. Validation failures are InputInvalid (spec §7): rejected
// at the boundary, never entering the engine.
func NewInitialState(question, sessionID string, maxRetries int, history []string) (RunState, error) {
	if len(question) == 0 || len(question) > 2000 {
		return RunState{}, fmt.Errorf("%w: question must be 1..2000 characters, got %d", ErrInputInvalid, len(question))
	}
	if maxRetries < 1 || maxRetries > 5 {
		return RunState{}, fmt.Errorf("%w: max_retries must be 1..5, got %d", ErrInputInvalid, maxRetries)
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	return RunState{
		Question:        question,
		MaxRetries:      maxRetries,
		SessionID:       sessionID,
		HistoryMessages: history,
	}, nil
}
