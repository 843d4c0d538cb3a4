package rag

import (
	"context"
	"sync"
)

// MockRetriever is a test implementation of Retriever: configurable
// response sequence, call history, error injection, thread-safe — the
// same shape as graph/model.MockChatModel and graph/tool.MockTool.
type MockRetriever struct {
	Responses [][]Document
	Err       error
	Calls     []string

	mu        sync.Mutex
	callIndex int
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string) ([]Document, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, question)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

func (m *MockRetriever) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

func (m *MockRetriever) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockLanguageModelCall records a single Chat/ChatStructured invocation.
type MockLanguageModelCall struct {
	SystemPrompt string
	HumanPrompt  string
	Structured   bool
}

// MockLanguageModel is a test implementation of LanguageModel. Chat and
// ChatStructured share one response sequence and call index — tests that
// need to distinguish them should inspect Calls[i].Structured.
type MockLanguageModel struct {
	Responses []string
	Err       error
	Calls     []MockLanguageModelCall

	mu        sync.Mutex
	callIndex int
}

func (m *MockLanguageModel) next(systemPrompt, humanPrompt string, structured bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockLanguageModelCall{SystemPrompt: systemPrompt, HumanPrompt: humanPrompt, Structured: structured})

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

func (m *MockLanguageModel) Chat(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return m.next(systemPrompt, humanPrompt, false)
}

func (m *MockLanguageModel) ChatStructured(ctx context.Context, systemPrompt, humanPrompt string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return m.next(systemPrompt, humanPrompt, true)
}

func (m *MockLanguageModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockWebSearch is a test implementation of WebSearchTool.
type MockWebSearch struct {
	Responses []WebSearchResult
	Err       error
	Calls     []string

	mu        sync.Mutex
	callIndex int
}

func (m *MockWebSearch) Search(ctx context.Context, query string, topK int) (WebSearchResult, error) {
	if ctx.Err() != nil {
		return WebSearchResult{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, query)

	if m.Err != nil {
		return WebSearchResult{}, m.Err
	}
	if len(m.Responses) == 0 {
		return WebSearchResult{}, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

func (m *MockWebSearch) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

func (m *MockWebSearch) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
