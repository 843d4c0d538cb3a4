package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/adaptive-rag-go/graph/tool"
)

// tavilySearchTool adapts tool.HTTPTool to the Tavily Search API
// (https://tavily.com), the web search backend original_source's
// udf_tools.py wires through langchain_tavily.TavilySearch.
type tavilySearchTool struct {
	http   *tool.HTTPTool
	apiKey string
}

func newTavilySearchTool(apiKey string) *tavilySearchTool {
	return &tavilySearchTool{http: tool.NewHTTPTool(), apiKey: apiKey}
}

func (t *tavilySearchTool) Name() string { return "tavily_search" }

// Call issues the Tavily REST request through the generic HTTPTool and
// reshapes its raw JSON body into the content/sources keys
// rag.NewWebSearchTool expects.
func (t *tavilySearchTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	query, _ := input["query"].(string)
	topK, _ := input["top_k"].(int)
	if topK <= 0 {
		topK = 3
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"api_key":     t.apiKey,
		"query":       query,
		"max_results": topK,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tavily request: %w", err)
	}

	raw, err := t.http.Call(ctx, map[string]interface{}{
		"method": "POST",
		"url":    "https://api.tavily.com/search",
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
		},
		"body": string(reqBody),
	})
	if err != nil {
		return nil, err
	}

	if status, _ := raw["status_code"].(int); status != 200 {
		return nil, fmt.Errorf("tavily search returned status %v: %v", raw["status_code"], raw["body"])
	}

	var parsed struct {
		Results []struct {
			Content string `json:"content"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	bodyStr, _ := raw["body"].(string)
	if err := json.Unmarshal([]byte(bodyStr), &parsed); err != nil {
		return nil, fmt.Errorf("decoding tavily response: %w", err)
	}

	var content string
	sources := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if content != "" {
			content += "\n\n"
		}
		content += r.Content
		sources = append(sources, r.URL)
	}

	return map[string]interface{}{
		"content": content,
		"sources": sources,
	}, nil
}
