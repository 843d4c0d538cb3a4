package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/adaptive-rag-go/graph"
)

// newRetrieveNode builds the retrieve node (spec §4.C): fetch documents
// for the question from the corpus. Any retriever error is fatal to the
// run.
func newRetrieveNode(retriever Retriever) graph.Node[RunState] {
	return graph.NodeFunc[RunState](func(ctx context.Context, state RunState) graph.NodeResult[RunState] {
		docs, err := retriever.Retrieve(ctx, state.Question)
		if err != nil {
			return graph.NodeResult[RunState]{Err: &graph.EngineError{
				Message: err.Error(),
				Code:    graph.CodeRetrievalFailure,
				NodeID:  "retrieve",
				Cause:   fmt.Errorf("%w: %v", ErrRetrievalFailure, err),
			}}
		}
		if docs == nil {
			docs = []Document{}
		}
		return graph.NodeResult[RunState]{
			Delta: RunState{Documents: docs},
			Route: graph.Goto(NodeGradeDocuments),
		}
	})
}

// binaryScore is the common shape every grader/router JSON response is
// parsed into (spec §4.B: a single discriminator key per prompt).
type binaryScore struct {
	BinaryScore string `json:"binary_score"`
}

type routeScore struct {
	Datasource string `json:"datasource"`
}

func parseBinaryScore(raw string) (string, error) {
	var v binaryScore
	if err := parseJSON(raw, &v); err != nil {
		return "", err
	}
	if v.BinaryScore != "yes" && v.BinaryScore != "no" {
		return "", fmt.Errorf("binary_score must be yes or no, got %q", v.BinaryScore)
	}
	return v.BinaryScore, nil
}

// parseJSON unmarshals a (possibly whitespace-padded) JSON object from an
// LLM's structured-output response. Centralizing this lets every
// grader/router apply the same "parse defensively" policy (spec §9).
func parseJSON(raw string, v interface{}) error {
	return json.Unmarshal([]byte(strings.TrimSpace(raw)), v)
}

// newGradeDocumentsNode builds the grade_documents node (spec §4.C): grade
// every retrieved document for relevance, keeping the "yes" set (in
// input order) and recording whether web search is now needed. A
// document whose grader response is unparseable is retained — fail-open,
// per spec's stated rationale of preferring a possibly-irrelevant chunk
// over spuriously triggering a web search.
func newGradeDocumentsNode(lm LanguageModel) graph.Node[RunState] {
	return graph.NodeFunc[RunState](func(ctx context.Context, state RunState) graph.NodeResult[RunState] {
		kept := make([]Document, 0, len(state.Documents))
		for _, doc := range state.Documents {
			human := render(docGraderPrompt, "{document}", doc.Text, "{question}", state.Question)
			raw, err := lm.ChatStructured(ctx, docGraderSystemPrompt, human)
			if err != nil {
				kept = append(kept, doc)
				continue
			}
			score, parseErr := parseBinaryScore(raw)
			if parseErr != nil || score == "yes" {
				kept = append(kept, doc)
			}
		}

		return graph.NodeResult[RunState]{
			Delta: RunState{
				Documents:       kept,
				WebSearchNeeded: len(kept) == 0,
			},
		}
	})
}

// newGenerateNode builds the generate node (spec §4.C): the only node
// that advances loop_step/GenerationCount. A language-model transport
// failure here is fatal to the run (spec §7).
func newGenerateNode(lm LanguageModel) graph.Node[RunState] {
	return graph.NodeFunc[RunState](func(ctx context.Context, state RunState) graph.NodeResult[RunState] {
		texts := make([]string, len(state.Documents))
		for i, doc := range state.Documents {
			texts[i] = doc.Text
		}
		docContext := strings.Join(texts, "\n")

		human := render(ragAnswerPrompt, "{context}", docContext, "{question}", state.Question)
		text, err := lm.Chat(ctx, ragAnswerSystemPrompt, human)
		if err != nil {
			return graph.NodeResult[RunState]{Err: &graph.EngineError{
				Message: err.Error(),
				Code:    graph.CodeLMTransportFailure,
				NodeID:  "generate",
				Cause:   fmt.Errorf("%w: %v", ErrGenerationFailure, err),
			}}
		}

		return graph.NodeResult[RunState]{
			Delta: RunState{
				Generation:      text,
				LoopStep:        1,
				GenerationCount: 1,
			},
		}
	})
}

// newWebSearchNode builds the web_search node (spec §4.C): search the web
// for the question and append a single synthesized Document. A web-search
// failure is fatal to the run — there is no fallback path from here.
func newWebSearchNode(search WebSearchTool, topK int) graph.Node[RunState] {
	return graph.NodeFunc[RunState](func(ctx context.Context, state RunState) graph.NodeResult[RunState] {
		result, err := search.Search(ctx, state.Question, topK)
		if err != nil {
			return graph.NodeResult[RunState]{Err: &graph.EngineError{
				Message: err.Error(),
				Code:    graph.CodeWebSearchFailure,
				NodeID:  "web_search",
				Cause:   fmt.Errorf("%w: %v", ErrWebSearchFailure, err),
			}}
		}

		metadata := map[string]string{"source": "web_search"}
		if len(result.Sources) > 0 {
			metadata["urls"] = strings.Join(result.Sources, ",")
		}

		docs := make([]Document, len(state.Documents), len(state.Documents)+1)
		copy(docs, state.Documents)
		docs = append(docs, Document{Text: result.Content, Metadata: metadata})

		return graph.NodeResult[RunState]{
			Delta: RunState{Documents: docs},
			Route: graph.Goto(NodeGenerate),
		}
	})
}
