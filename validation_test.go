package unifiedllm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Validate_OK(t *testing.T) {
	type Args struct {
		Location string `json:"location"`
	}
	tool, err := NewTool("weather", "Weather", func(_ context.Context, a Args) (string, error) {
		return "sunny", nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	reg.Register(tool)

	errs := reg.Validate(ToolCall{ID: "c", Name: "weather", Arguments: `{"location":"SF"}`})
	assert.Empty(t, errs)
}

func TestRegistry_Validate_UnknownTool(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t, "echo"))

	errs := reg.Validate(ToolCall{ID: "c", Name: "missing", Arguments: `{}`})
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrToolNotFound))
	assert.Contains(t, errs[0].Error(), "echo")
}

func TestRegistry_Validate_EmptyName(t *testing.T) {
	reg := NewRegistry()
	errs := reg.Validate(ToolCall{ID: "c", Arguments: `{}`})
	require.Len(t, errs, 1)
	assert.True(t, IsValidationError(errs[0]))
}

func TestRegistry_Validate_BadJSON(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t, "echo"))

	errs := reg.Validate(ToolCall{ID: "c", Name: "echo", Arguments: `{"s":`})
	require.Len(t, errs, 1)
	assert.True(t, IsValidationError(errs[0]))
}

func TestRegistry_Validate_SchemaViolation(t *testing.T) {
	type Args struct {
		N int `json:"n"`
	}
	tool, err := NewTool("count", "Count", func(_ context.Context, a Args) (int, error) {
		return a.N, nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	reg.Register(tool)

	errs := reg.Validate(ToolCall{ID: "c", Name: "count", Arguments: `{"n":"three"}`})
	require.Len(t, errs, 1)
	assert.True(t, IsValidationError(errs[0]))
}

func TestRegistry_Validate_EmptyArgsAllowed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t, "echo"))

	errs := reg.Validate(ToolCall{ID: "c", Name: "echo"})
	assert.Empty(t, errs)
}
