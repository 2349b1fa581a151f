package openailike

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	unifiedllm "github.com/s-aravindh/unified-llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h}
}

func sseResponse(events ...string) *http.Response {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString("data: " + ev + "\n\n")
	}
	h := make(http.Header)
	h.Set("Content-Type", "text/event-stream")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: h}
}

func newTestClient(t *testing.T, rt roundTripperFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL("https://example.test/v1"),
		WithAPIKey("test-key"),
		WithModel("test-model"),
		WithHTTPClient(&http.Client{Transport: rt}),
	}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func userMessages(text string) []unifiedllm.Message {
	return []unifiedllm.Message{{Role: unifiedllm.RoleUser, Content: text}}
}

func TestChat_Content(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		return jsonResponse(http.StatusOK, `{
			"id":"resp_1","model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello!"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}
		}`), nil
	})

	resp, err := c.Chat(context.Background(), Request{Messages: userMessages("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, "resp_1", resp.Metadata["id"])
	assert.Equal(t, "stop", resp.Metadata["finish_reason"])
	usage, ok := resp.Metadata["usage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(12), usage["total_tokens"])
}

func TestChat_ToolCalls(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{
			"id":"resp_2","model":"test-model",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{
				"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"location\":\"SF\"}"}}]
			}}]
		}`), nil
	})

	resp, err := c.Chat(context.Background(), Request{Messages: userMessages("weather?")})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"location":"SF"}`, resp.ToolCalls[0].Arguments)
}

func TestChat_ReasoningField(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{
			"id":"r","model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{
				"role":"assistant","content":"42","reasoning_content":"6 times 7"
			}}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2,
				"completion_tokens_details":{"reasoning_tokens":9}}
		}`), nil
	}, WithAggregatorOptions(unifiedllm.WithReasoningMode(unifiedllm.ReasoningAuto)))

	resp, err := c.Chat(context.Background(), Request{Messages: userMessages("6*7?")})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, "6 times 7", resp.ReasoningContent)
	assert.Equal(t, 9, resp.ReasoningTokens)
}

func TestChat_TaggedReasoning(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{
			"choices":[{"index":0,"finish_reason":"stop","message":{
				"role":"assistant","content":"<think>multiply</think>42"
			}}]
		}`), nil
	}, WithAggregatorOptions(unifiedllm.WithReasoningMode(unifiedllm.ReasoningAuto)))

	resp, err := c.Chat(context.Background(), Request{Messages: userMessages("6*7?")})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, "multiply", resp.ReasoningContent)
}

func TestChat_APIError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"bad key","code":"invalid_api_key"}}`), nil
	})

	_, err := c.Chat(context.Background(), Request{Messages: userMessages("hi")})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindAuth, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
	assert.Equal(t, "bad key", apiErr.Message)
	assert.Equal(t, "invalid_api_key", apiErr.ProviderCode)
	assert.False(t, apiErr.Retryable)
}

func TestChat_ValidatesInput(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	_, err := c.Chat(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	_, err = c.Chat(context.Background(), Request{
		Model:    "m",
		Messages: []unifiedllm.Message{{Role: "bogus"}},
	})
	require.Error(t, err)
}

func TestChatStream_ContentDeltas(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(
			`{"id":"s1","model":"m","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
			`{"id":"s1","model":"m","choices":[{"index":0,"delta":{"content":" world"}}]}`,
			`{"id":"s1","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
			"[DONE]",
		), nil
	})

	stream, err := c.ChatStream(context.Background(), Request{Messages: userMessages("hi")})
	require.NoError(t, err)
	defer stream.Close()

	var content string
	var sawComplete bool
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content += chunk.ContentDelta
		if chunk.IsComplete {
			sawComplete = true
			assert.Equal(t, "stop", chunk.Metadata["finish_reason"])
		}
	}
	assert.True(t, sawComplete)
	assert.Equal(t, "Hello world", content)

	resp, ok := stream.Response()
	require.True(t, ok)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "s1", resp.Metadata["id"])
	usage, ok := resp.Metadata["usage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), usage["total_tokens"])
}

func TestChatStream_ToolCallFragments(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(
			`{"choices":[{"index":0,"delta":{"content":"The result is "}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"calculate","arguments":"{\"expres"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"sion\":\"2+2\"}"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			"[DONE]",
		), nil
	})

	stream, err := c.ChatStream(context.Background(), Request{Messages: userMessages("2+2?")})
	require.NoError(t, err)
	defer stream.Close()

	var final unifiedllm.ChatStreamChunk
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if chunk.IsComplete {
			final = chunk
		}
	}
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "call_1", final.ToolCalls[0].ID)
	assert.Equal(t, "calculate", final.ToolCalls[0].Name)
	assert.JSONEq(t, `{"expression":"2+2"}`, final.ToolCalls[0].Arguments)

	resp, ok := stream.Response()
	require.True(t, ok)
	assert.Equal(t, "The result is ", resp.Content)
}

func TestChatStream_EOFWithoutDoneMarker(t *testing.T) {
	// Some backends close the connection without the [DONE] sentinel.
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(
			`{"choices":[{"index":0,"delta":{"content":"partial"}}]}`,
		), nil
	})

	stream, err := c.ChatStream(context.Background(), Request{Messages: userMessages("hi")})
	require.NoError(t, err)
	defer stream.Close()

	var content string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content += chunk.ContentDelta
	}
	assert.Equal(t, "partial", content)
	resp, ok := stream.Response()
	require.True(t, ok)
	assert.Equal(t, "partial", resp.Content)
}

func TestChatStream_HTTPError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`), nil
	})

	_, err := c.ChatStream(context.Background(), Request{Messages: userMessages("hi")})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindRateLimit, apiErr.Kind)
	assert.True(t, apiErr.Retryable)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(WithAPIKey("k"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestBuildRequest_ToolsAndHistory(t *testing.T) {
	var captured []byte
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		captured, _ = io.ReadAll(r.Body)
		return jsonResponse(http.StatusOK, `{"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`), nil
	})

	_, err := c.Chat(context.Background(), Request{
		Messages: []unifiedllm.Message{
			{Role: unifiedllm.RoleUser, Content: "weather?"},
			{Role: unifiedllm.RoleAssistant, ToolCalls: []unifiedllm.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"location":"SF"}`}}},
			{Role: unifiedllm.RoleTool, Content: "sunny", ToolCallID: "call_1"},
		},
		Tools: []unifiedllm.ToolSchema{{
			Name:        "get_weather",
			Description: "Weather lookup",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	body := string(captured)
	assert.Contains(t, body, `"model":"test-model"`)
	assert.Contains(t, body, `"tool_call_id":"call_1"`)
	assert.Contains(t, body, `"name":"get_weather"`)
	assert.Contains(t, body, `"type":"function"`)
	assert.NotContains(t, body, `"stream":true`)
}
