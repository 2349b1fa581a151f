// Package testutil provides test helpers for unifiedllm (e.g. MockTool).
package testutil

import (
	"context"

	unifiedllm "github.com/s-aravindh/unified-llm"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal map[string]any
	ExecuteFn func(ctx context.Context, argsJSON []byte) ([]byte, error)
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or empty map).
func (m *MockTool) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{}
}

// Execute runs ExecuteFn if set, otherwise returns an empty JSON object.
func (m *MockTool) Execute(ctx context.Context, argsJSON []byte) ([]byte, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, argsJSON)
	}
	return []byte(`{}`), nil
}

// Ensure MockTool implements Tool.
var _ unifiedllm.Tool = (*MockTool)(nil)
