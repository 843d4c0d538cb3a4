// Package graph provides a small, generic state-graph execution engine.
package graph

import (
	"errors"
	"fmt"
)

// ErrMaxStepsExceeded indicates that the graph execution reached the maximum
// allowed step count without completing. This prevents infinite loops and
// runaway executions.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrBackpressure indicates that the consumer of a Stream could not keep up:
// the engine's single-snapshot-ahead buffer was still full when the engine
// tried to publish the next snapshot and the configured wait elapsed.
// Engine.Stream does not deliver it: a run that hits BackpressureTimeout is
// abandoned and its channel closed.
var ErrBackpressure = errors.New("consumer backpressure: snapshot buffer not drained in time")

// ErrInvalidRetryPolicy is returned by RetryPolicy.Validate when a policy's
// fields are out of range (see RetryPolicy for the constraints).
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// ErrUnknownRoute is returned when a Router produces a label that is not
// present in the route map it was registered with.
var ErrUnknownRoute = errors.New("router produced a label with no registered successor")

// ErrorCode is a machine-readable classification attached to an EngineError,
// letting callers switch on failure disposition instead of matching message
// text. The zero value, CodeUnspecified, is used for errors that predate
// this classification (e.g. errors wrapped from node code that didn't set
// one).
type ErrorCode string

const (
	CodeUnspecified          ErrorCode = ""
	CodeInputInvalid         ErrorCode = "INPUT_INVALID"
	CodeRetrievalFailure     ErrorCode = "RETRIEVAL_FAILURE"
	CodeWebSearchFailure     ErrorCode = "WEB_SEARCH_FAILURE"
	CodeLMParseFailure       ErrorCode = "LM_PARSE_FAILURE"
	CodeLMTransportFailure   ErrorCode = "LM_TRANSPORT_FAILURE"
	CodeCheckpointWriteFail  ErrorCode = "CHECKPOINT_WRITE_FAILURE"
	CodeMaxRetriesExceeded   ErrorCode = "MAX_RETRIES_EXCEEDED"
	CodeNodeTimeout          ErrorCode = "NODE_TIMEOUT"
	CodeMaxStepsExceeded     ErrorCode = "MAX_STEPS_EXCEEDED"
	CodeUnknownRoute         ErrorCode = "UNKNOWN_ROUTE"
	CodeUnsupportedConfig    ErrorCode = "UNSUPPORTED_CONFIG"
)

// EngineError is a structured error carrying a human-readable message, a
// machine-readable Code, the node that produced it (if any), and the
// underlying cause. Engine-level failures (bad graph construction, timeouts,
// step limits, unmapped router labels) surface as EngineError. A node's own
// NodeResult.Err is passed through unchanged, so it is an EngineError only
// if the node returned one.
type EngineError struct {
	Message string
	Code    ErrorCode
	NodeID  string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s", e.NodeID, e.Message)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}
