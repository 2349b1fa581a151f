package unifiedllm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_OpenAINested(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	tc, err := n.Normalize([]byte(`{"id":"call_abc","type":"function","function":{"name":"get_weather","arguments":"{\"location\":\"Paris\"}"}}`))
	require.NoError(t, err)
	assert.Equal(t, "call_abc", tc.ID)
	assert.Equal(t, "get_weather", tc.Name)
	assert.JSONEq(t, `{"location":"Paris"}`, tc.Arguments)
}

func TestNormalizer_OpenAIFlat(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	tc, err := n.Normalize([]byte(`{"id":"call_1","name":"search","arguments":"{\"q\":\"go\"}"}`))
	require.NoError(t, err)
	assert.Equal(t, "search", tc.Name)
	assert.JSONEq(t, `{"q":"go"}`, tc.Arguments)
}

func TestNormalizer_Standard(t *testing.T) {
	n := NewNormalizer(FamilyStandard)
	tc, err := n.Normalize([]byte(`{"id":"c1","name":"calc","arguments":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, ToolCall{ID: "c1", Name: "calc", Arguments: "{}"}, tc)
}

func TestNormalizer_SynthesizedIDs(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	a, err := n.Normalize([]byte(`{"name":"first","arguments":"{}"}`))
	require.NoError(t, err)
	b, err := n.Normalize([]byte(`{"name":"second","arguments":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, "openai_call_1", a.ID)
	assert.Equal(t, "openai_call_2", b.ID)
	assert.NotEqual(t, a.ID, b.ID)

	// A provider-assigned id does not consume the counter.
	c, err := n.Normalize([]byte(`{"id":"call_x","name":"third","arguments":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, "call_x", c.ID)
	d, err := n.Normalize([]byte(`{"name":"fourth","arguments":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, "openai_call_3", d.ID)
}

func TestNormalizer_EmptyArguments(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	tc, err := n.Normalize([]byte(`{"id":"c","name":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "{}", tc.Arguments)
}

func TestNormalizer_MissingName(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	tc, err := n.Normalize([]byte(`{"id":"c","arguments":"{}"}`))
	var merr *MalformedToolCallError
	require.ErrorAs(t, err, &merr)
	// Best effort: the partial call keeps what the provider sent.
	assert.Equal(t, "c", tc.ID)
}

func TestNormalizer_InvalidArgumentJSON(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	tc, err := n.Normalize([]byte(`{"id":"c","name":"calc","arguments":"{\"x\":"}`))
	var merr *MalformedToolCallError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "calc", tc.Name)
}

func TestNormalizer_Undecodable(t *testing.T) {
	n := NewNormalizer(FamilyOpenAI)
	_, err := n.Normalize([]byte(`not json`))
	var merr *MalformedToolCallError
	require.True(t, errors.As(err, &merr))
}
