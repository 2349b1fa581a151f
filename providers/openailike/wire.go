package openailike

import "encoding/json"

type wireRequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	ReasoningContent string         `json:"reasoning_content,omitempty"`
	ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatCompletionRequest struct {
	Model    string               `json:"model"`
	Messages []wireRequestMessage `json:"messages"`
	Stream   bool                 `json:"stream"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	Tools      []wireTool `json:"tools,omitempty"`
	ToolChoice string     `json:"tool_choice,omitempty"`

	StreamOptions json.RawMessage `json:"stream_options,omitempty"`
}

type wireToolCall struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Type  string `json:"type,omitempty"`

	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	} `json:"completion_tokens_details,omitempty"`
}

type chatCompletionResponse struct {
	ID    string `json:"id"`
	Model string `json:"model"`

	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role             string         `json:"role"`
			Content          string         `json:"content"`
			ReasoningContent string         `json:"reasoning_content,omitempty"`
			ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`

	Usage *wireUsage `json:"usage,omitempty"`
}

type chatCompletionChunk struct {
	ID    string `json:"id"`
	Model string `json:"model"`

	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role             string         `json:"role,omitempty"`
			Content          string         `json:"content,omitempty"`
			ReasoningContent string         `json:"reasoning_content,omitempty"`
			ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`

	Usage *wireUsage `json:"usage,omitempty"`
}
