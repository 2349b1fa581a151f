package testutil

import (
	"time"

	unifiedllm "github.com/s-aravindh/unified-llm"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests.
func NewTestRegistry(tools ...unifiedllm.Tool) *unifiedllm.Registry {
	reg := unifiedllm.NewRegistry(
		unifiedllm.WithDefaultTimeout(30*time.Second),
		unifiedllm.WithRecoverPanics(true),
	)
	for _, t := range tools {
		reg.Register(t)
	}
	return reg
}
