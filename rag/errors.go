package rag

import "errors"

// ErrInputInvalid is returned by NewInitialState when the caller-supplied
// inputs fail validation (spec §7, InputInvalid — rejected at the
// boundary, never enters the engine).
var ErrInputInvalid = errors.New("rag: invalid input")

// ErrRetrievalFailure wraps any error returned by a Retriever. Fatal to
// the run (spec §7).
var ErrRetrievalFailure = errors.New("rag: retrieval failed")

// ErrWebSearchFailure wraps any error returned by a WebSearchTool. Fatal
// to the run (spec §7) — there is no fallback path from web_search.
var ErrWebSearchFailure = errors.New("rag: web search failed")

// ErrGenerationFailure wraps a LanguageModel transport failure inside
// generate. Fatal to the run (spec §7, LMTransportFailure in generate).
var ErrGenerationFailure = errors.New("rag: generation failed")
