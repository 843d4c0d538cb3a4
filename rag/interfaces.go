package rag

import (
	"context"
	"fmt"

	"github.com/dshills/adaptive-rag-go/graph/model"
	"github.com/dshills/adaptive-rag-go/graph/tool"
)

// Retriever fetches documents relevant to question from the private
// corpus, in relevance-ranked order (spec §6). Implementations must be
// safe for concurrent use across runs.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]Document, error)
}

// LanguageModel is the collaborator nodes and routers call for both free
// text and structured (JSON-object) completions (spec §6). ChatStructured
// promises, but does not guarantee, a JSON document — callers must parse
// defensively and apply the node-local fallback on failure (spec §9).
type LanguageModel interface {
	Chat(ctx context.Context, systemPrompt, humanPrompt string) (string, error)
	ChatStructured(ctx context.Context, systemPrompt, humanPrompt string) (string, error)
}

// WebSearchResult is the materialized result of a web search call.
type WebSearchResult struct {
	Content string
	Sources []string
}

// WebSearchTool performs a web search for query, returning at most topK
// results worth of content (spec §6).
type WebSearchTool interface {
	Search(ctx context.Context, query string, topK int) (WebSearchResult, error)
}

// languageModelAdapter wraps a graph/model.ChatModel — which only exposes
// a single free-text Chat(messages, tools) method — into the rag.LanguageModel
// contract. ChatStructured is not a distinct provider capability; it is a
// prompting convention (spec §9): append a JSON-only instruction to the
// system prompt and return whatever text comes back, unparsed. Callers
// (the grader/router node code) are responsible for parse-then-validate.
type languageModelAdapter struct {
	chat model.ChatModel
}

// NewLanguageModel adapts any graph/model.ChatModel into a rag.LanguageModel.
func NewLanguageModel(chat model.ChatModel) LanguageModel {
	return &languageModelAdapter{chat: chat}
}

func (a *languageModelAdapter) Chat(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	out, err := a.chat.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: systemPrompt},
		{Role: model.RoleUser, Content: humanPrompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (a *languageModelAdapter) ChatStructured(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	structuredSystem := systemPrompt + "\n\nRespond with a single JSON object and nothing else."
	out, err := a.chat.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: structuredSystem},
		{Role: model.RoleUser, Content: humanPrompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// httpWebSearch adapts a graph/tool.Tool (typically tool.HTTPTool pointed
// at a search API) into the rag.WebSearchTool contract.
type httpWebSearch struct {
	t tool.Tool
}

// NewWebSearchTool adapts any graph/tool.Tool into a rag.WebSearchTool. The
// underlying tool is expected to accept "query" and "top_k" input keys and
// return "content" (string) and "sources" ([]interface{} of string URLs),
// the shape tool.HTTPTool's JSON response-body passthrough naturally
// produces when pointed at a search API that returns that schema.
func NewWebSearchTool(t tool.Tool) WebSearchTool {
	return &httpWebSearch{t: t}
}

func (w *httpWebSearch) Search(ctx context.Context, query string, topK int) (WebSearchResult, error) {
	out, err := w.t.Call(ctx, map[string]interface{}{
		"query": query,
		"top_k": topK,
	})
	if err != nil {
		return WebSearchResult{}, err
	}

	content, _ := out["content"].(string)
	var sources []string
	if raw, ok := out["sources"].([]interface{}); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				sources = append(sources, str)
			}
		}
	} else if raw, ok := out["sources"].([]string); ok {
		sources = raw
	}

	if content == "" && len(sources) == 0 {
		return WebSearchResult{}, fmt.Errorf("web search tool returned no content or sources")
	}

	return WebSearchResult{Content: content, Sources: sources}, nil
}
