// Package openailike talks to OpenAI-compatible chat completion APIs
// (OpenAI, DeepSeek, vLLM, Ollama's OpenAI endpoint and similar) and maps
// both single-shot and streamed responses onto the unifiedllm data model.
package openailike

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	unifiedllm "github.com/s-aravindh/unified-llm"
	"github.com/s-aravindh/unified-llm/internal/transport"
)

const defaultPath = "/chat/completions"

// Request is one chat completion call.
type Request struct {
	Model    string
	Messages []unifiedllm.Message
	Tools    []unifiedllm.ToolSchema

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Client is an OpenAI-compatible chat client.
type Client struct {
	t       *transport.Client
	path    string
	model   string
	aggOpts []unifiedllm.AggregatorOption
}

// New creates a Client. WithBaseURL is required.
func New(opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		return nil, fmt.Errorf("openailike: base URL required (use WithBaseURL)")
	}

	t, err := transport.New(o.baseURL, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("openailike: %w", err)
	}
	t.UserAgent = "unified-llm/1"
	if o.apiKey != "" {
		t.DefaultHeaders.Set("Authorization", "Bearer "+o.apiKey)
	}
	t.DefaultHeaders.Set("Content-Type", "application/json")
	for k, vs := range o.headers {
		for _, v := range vs {
			t.DefaultHeaders.Add(k, v)
		}
	}
	if o.logger != nil {
		t.Logger = o.logger
	}
	if o.retry != nil {
		t.Retry = *o.retry
	}

	path := o.path
	if path == "" {
		path = defaultPath
	}
	return &Client{t: t, path: path, model: o.model, aggOpts: o.aggOpts}, nil
}

// Chat performs a single-shot completion. The response passes through the
// same aggregation pipeline as streaming, so reasoning extraction and
// tool-call normalization behave identically in both modes.
func (c *Client) Chat(ctx context.Context, req Request) (unifiedllm.ChatResponse, error) {
	payload, err := c.buildRequest(req, false)
	if err != nil {
		return unifiedllm.ChatResponse{}, err
	}

	_, raw, err := c.t.DoJSON(ctx, http.MethodPost, c.path, nil, payload)
	if err != nil {
		return unifiedllm.ChatResponse{}, mapError(err)
	}

	var in chatCompletionResponse
	if err := json.Unmarshal(raw, &in); err != nil {
		return unifiedllm.ChatResponse{}, &APIError{Kind: ErrKindParse, Message: "decode response", Raw: raw, Cause: err}
	}
	if len(in.Choices) == 0 {
		return unifiedllm.ChatResponse{}, &APIError{Kind: ErrKindParse, Message: "response has no choices", Raw: raw}
	}

	msg := in.Choices[0].Message
	chunk := unifiedllm.ProviderChunk{
		ContentDelta:   msg.Content,
		ReasoningDelta: msg.ReasoningContent,
		Metadata:       responseMetadata(raw),
	}
	for i, tc := range msg.ToolCalls {
		chunk.ToolCalls = append(chunk.ToolCalls, unifiedllm.ToolCallFragment{
			Index:     i,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if in.Usage != nil && in.Usage.CompletionTokensDetails != nil {
		chunk.ReasoningTokens = in.Usage.CompletionTokensDetails.ReasoningTokens
	}

	out, err := unifiedllm.ParseResponse(chunk, c.aggOpts...)
	if err != nil {
		return unifiedllm.ChatResponse{}, &APIError{Kind: ErrKindParse, Message: err.Error(), Raw: raw, Cause: err}
	}
	return out, nil
}

// ChatStream starts a streamed completion. The caller must drain the stream
// with Recv until io.EOF and then Close it.
func (c *Client) ChatStream(ctx context.Context, req Request) (*Stream, error) {
	payload, err := c.buildRequest(req, true)
	if err != nil {
		return nil, err
	}
	payload.StreamOptions = json.RawMessage(`{"include_usage":true}`)

	resp, err := c.t.DoStream(ctx, http.MethodPost, c.path, http.Header{"Accept": []string{"text/event-stream"}}, payload)
	if err != nil {
		return nil, mapError(err)
	}
	return newStream(resp.Body, unifiedllm.NewAggregator(c.aggOpts...)), nil
}

func (c *Client) buildRequest(req Request, stream bool) (*chatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, fmt.Errorf("openailike: model required (use WithModel or Request.Model)")
	}
	if err := unifiedllm.ValidateMessages(req.Messages); err != nil {
		return nil, fmt.Errorf("openailike: %w", err)
	}

	out := &chatCompletionRequest{
		Model:       model,
		Stream:      stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		wm := wireRequestMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for i, tc := range m.ToolCalls {
			wtc := wireToolCall{Index: i, ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.Arguments
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		out.Messages = append(out.Messages, wm)
	}
	for _, ts := range req.Tools {
		wt := wireTool{Type: "function"}
		wt.Function.Name = ts.Name
		wt.Function.Description = ts.Description
		wt.Function.Parameters = ts.Parameters
		out.Tools = append(out.Tools, wt)
	}
	return out, nil
}

// responseMetadata scrapes provider metadata from the raw body without
// binding the whole payload to a struct.
func responseMetadata(raw []byte) map[string]any {
	meta := make(map[string]any)
	if v := gjson.GetBytes(raw, "id"); v.Exists() {
		meta["id"] = v.String()
	}
	if v := gjson.GetBytes(raw, "model"); v.Exists() {
		meta["model"] = v.String()
	}
	if v := gjson.GetBytes(raw, "choices.0.finish_reason"); v.Exists() && v.Type == gjson.String {
		meta["finish_reason"] = v.String()
	}
	if v := gjson.GetBytes(raw, "usage"); v.IsObject() {
		meta["usage"] = v.Value()
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
