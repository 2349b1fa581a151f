package unifiedllm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_Tags(t *testing.T) {
	type Args struct {
		Location string `json:"location" description:"City name"`
		Units    string `json:"units,omitempty" enum:"celsius,fahrenheit" default:"celsius"`
		Days     int    `json:"days,omitempty" description:"Forecast days" default:"5"`
	}
	schemaMap, resolved, err := generateSchema[Args](false)
	require.NoError(t, err)
	require.NotNil(t, resolved)

	assert.Equal(t, "object", schemaMap["type"])
	props, ok := schemaMap["properties"].(map[string]any)
	require.True(t, ok)

	loc, ok := props["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "City name", loc["description"])

	units, ok := props["units"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, units["enum"])
	assert.Equal(t, "celsius", units["default"])

	days, ok := props["days"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), days["default"])

	required, ok := schemaMap["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "location")
	assert.NotContains(t, required, "days")
}

func TestGenerateSchema_Strict(t *testing.T) {
	type Args struct {
		A string `json:"a"`
		B int    `json:"b,omitempty"`
	}
	schemaMap, _, err := generateSchema[Args](true)
	require.NoError(t, err)

	assert.Equal(t, false, schemaMap["additionalProperties"])
	required, ok := schemaMap["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"a", "b"}, required)
}

func TestRegisterType(t *testing.T) {
	type Args struct {
		When time.Time `json:"when"`
	}
	RegisterType(time.Time{}, "string", "date-time")

	schemaMap, _, err := generateSchema[Args](false)
	require.NoError(t, err)
	props := schemaMap["properties"].(map[string]any)
	when, ok := props["when"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", when["type"])
	assert.Equal(t, "date-time", when["format"])
}

func TestApplyDefaults(t *testing.T) {
	schemaMap := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days":     map[string]any{"type": "integer", "default": float64(5)},
			"location": map[string]any{"type": "string"},
		},
	}

	args := map[string]any{"location": "Paris"}
	assert.True(t, applyDefaults(schemaMap, args))
	assert.Equal(t, float64(5), args["days"])

	args = map[string]any{"location": "Paris", "days": float64(2)}
	assert.False(t, applyDefaults(schemaMap, args))
	assert.Equal(t, float64(2), args["days"])
}
