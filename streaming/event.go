// Package streaming converts a graph.Engine run's snapshot sequence into
// the typed external event stream a consumer (an HTTP/SSE handler, a CLI)
// actually wants: start/workflow_step/documents/chunk/done/error.
package streaming

// Kind identifies one of the six external event types (spec §4.G).
type Kind string

const (
	KindStart        Kind = "start"
	KindWorkflowStep Kind = "workflow_step"
	KindDocuments    Kind = "documents"
	KindChunk        Kind = "chunk"
	KindDone         Kind = "done"
	KindError        Kind = "error"
)

// Event is one item in the external stream. Payload is JSON-marshaled
// directly as the SSE "data:" line — its shape depends on Kind (see the
// payload maps built for each kind in adapter.go).
type Event struct {
	Kind    Kind
	Payload map[string]interface{}
}
