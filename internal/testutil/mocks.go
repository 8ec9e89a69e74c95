package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/revintel/insight-agent/pkg/domain"
)

// MockReasoningClient is a mock implementation of ReasoningClient for testing
type MockReasoningClient struct {
	mu          sync.Mutex
	Responses   map[string]string
	CallCount   int
	LastPrompt  string
	LastTier    domain.Tier
	ShouldError bool
	Err         error
	// CompleteFunc allows custom behavior for tests
	CompleteFunc func(ctx context.Context, prompt string, tier domain.Tier) (*domain.Completion, error)
}

// NewMockReasoningClient creates a new mock reasoning client
func NewMockReasoningClient() *MockReasoningClient {
	return &MockReasoningClient{
		Responses: make(map[string]string),
	}
}

// Complete implements domain.ReasoningClient
func (m *MockReasoningClient) Complete(ctx context.Context, prompt string, tier domain.Tier) (*domain.Completion, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastPrompt = prompt
	m.LastTier = tier
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, tier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ShouldError {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, fmt.Errorf("mock reasoning error")
	}

	content := "Mock completion"
	if resp, ok := m.Responses[prompt]; ok {
		content = resp
	} else if resp, ok := m.Responses["default"]; ok {
		content = resp
	}

	return &domain.Completion{
		Content: content,
		Model:   "mock-model",
		Usage: domain.TokenUsage{
			PromptTokens:     50,
			CompletionTokens: 50,
			TotalTokens:      100,
		},
	}, nil
}

// Calls returns the number of Complete invocations
func (m *MockReasoningClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockDataExecutor is a mock implementation of DataExecutor for testing
type MockDataExecutor struct {
	mu          sync.Mutex
	DataSource  domain.DataSource
	Rows        []map[string]interface{}
	CallCount   int
	LastRequest domain.DataRequest
	ShouldError bool
	Err         error
	// RunFunc allows custom behavior for tests
	RunFunc func(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error)
}

// NewMockDataExecutor creates a new mock data executor
func NewMockDataExecutor(source domain.DataSource) *MockDataExecutor {
	return &MockDataExecutor{
		DataSource: source,
		Rows: []map[string]interface{}{
			{"metric": "win_rate", "value": 0.34},
		},
	}
}

// Source implements the sourced executor contract
func (m *MockDataExecutor) Source() domain.DataSource {
	return m.DataSource
}

// Run implements domain.DataExecutor
func (m *MockDataExecutor) Run(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastRequest = req
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ShouldError {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, domain.ErrConnectionFailed
	}

	return &domain.DataResult{
		Rows:    m.Rows,
		Summary: fmt.Sprintf("%d rows from %s", len(m.Rows), m.DataSource),
	}, nil
}

// Calls returns the number of Run invocations
func (m *MockDataExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockKVStore is an in-memory KVStore that can be forced to fail
type MockKVStore struct {
	mu          sync.Mutex
	Data        map[string][]byte
	ShouldError bool
}

// NewMockKVStore creates an empty mock store
func NewMockKVStore() *MockKVStore {
	return &MockKVStore{Data: make(map[string][]byte)}
}

// Get implements domain.KVStore
func (m *MockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return nil, domain.ErrStoreUnavailable
	}
	value, ok := m.Data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return value, nil
}

// Put implements domain.KVStore
func (m *MockKVStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return domain.ErrStoreUnavailable
	}
	m.Data[key] = value
	return nil
}
