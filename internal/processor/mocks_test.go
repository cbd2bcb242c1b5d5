package processor_test

import (
	"context"
	"errors"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/internal/knowledge"
)

type mockLLMClient struct {
	chatFn    func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	requests  []llm.Request
	callCount int
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.callCount++
	m.requests = append(m.requests, req)
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockLLMClient) Model() string {
	return "test-model"
}

type mockLookup struct {
	queryFn func(ctx context.Context, scope, text string, limit int) ([]knowledge.Result, error)
}

func (m *mockLookup) Query(ctx context.Context, scope, text string, limit int) ([]knowledge.Result, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, scope, text, limit)
	}
	return nil, nil
}

type mockWritingLookup struct {
	mockLookup
	added map[string][]knowledge.Document
}

func (m *mockWritingLookup) Add(_ context.Context, scope string, docs []knowledge.Document) error {
	if m.added == nil {
		m.added = make(map[string][]knowledge.Document)
	}
	m.added[scope] = append(m.added[scope], docs...)
	return nil
}
