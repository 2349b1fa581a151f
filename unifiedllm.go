package unifiedllm

import (
	"context"
	"fmt"
)

// Metadata keys populated by the Aggregator. Values live in
// ChatResponse.Metadata next to provider-reported fields.
const (
	// MetaIncompleteReasoning is set to true when a reasoning tag was opened
	// but never closed before the stream ended. The opened span is returned
	// as ordinary content in that case.
	MetaIncompleteReasoning = "incomplete_reasoning"
	// MetaMalformedToolCalls counts tool calls the provider emitted that
	// could not be fully normalized (missing name or invalid argument JSON).
	MetaMalformedToolCalls = "malformed_tool_calls"
	// MetaDroppedFragments counts tool-call fragments that referenced an
	// index never opened by a named fragment and were discarded.
	MetaDroppedFragments = "dropped_fragments"
)

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversation entry in the unified, OpenAI-compatible
// shape. Assistant messages may carry tool calls; tool messages must
// reference the call they answer via ToolCallID.
type Message struct {
	Role             Role       `json:"role"`
	Content          string     `json:"content"`
	Name             string     `json:"name,omitempty"`
	ToolCallID       string     `json:"tool_call_id,omitempty"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

// ValidateMessages checks that a conversation is well formed before it is
// handed to a provider: non-empty, known roles, and tool messages carrying a
// tool_call_id back-reference.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return &ValidationError{Reason: "messages must not be empty"}
	}
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return &ValidationError{Reason: fmt.Sprintf("message %d has invalid role %q", i, m.Role)}
		}
		if m.Role == RoleTool && m.ToolCallID == "" {
			return &ValidationError{Reason: fmt.Sprintf("message %d with role tool is missing tool_call_id", i)}
		}
	}
	return nil
}

// ToolCall is a standardized tool invocation request as produced by a model.
// Arguments is a JSON-encoded object kept as text; it is parsed only at
// execution time. ID is unique within one response: provider-assigned when
// available, synthesized otherwise. Never mutated after normalization.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the outcome of executing one ToolCall. Content holds the
// stringified return value, or an error description when IsError is set.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Message converts the result into a role="tool" conversation entry
// referencing the originating call, ready to append to the history.
func (r ToolResult) Message() Message {
	return Message{Role: RoleTool, Content: r.Content, ToolCallID: r.ToolCallID}
}

// ChatResponse is the final, fully assembled view of one completion.
// ToolCalls preserve the order of first appearance in the source chunks and
// are always complete, never partial JSON.
type ChatResponse struct {
	Content          string         `json:"content"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	ReasoningTokens  int            `json:"reasoning_tokens,omitempty"`
	ToolCalls        []ToolCall     `json:"tool_calls,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ChatStreamChunk is one normalized streaming event. Deltas are strictly
// incremental: text already emitted is never re-emitted. IsReasoningComplete
// fires at most once per response, on the chunk where the reasoning phase
// ends. The terminal chunk (IsComplete) carries the complete assembled
// ToolCalls and the response metadata.
type ChatStreamChunk struct {
	ContentDelta        string             `json:"content_delta,omitempty"`
	ReasoningDelta      string             `json:"reasoning_delta,omitempty"`
	ToolCallDeltas      []ToolCallFragment `json:"tool_call_deltas,omitempty"`
	ToolCalls           []ToolCall         `json:"tool_calls,omitempty"`
	IsReasoningComplete bool               `json:"is_reasoning_complete,omitempty"`
	IsComplete          bool               `json:"is_complete,omitempty"`
	Metadata            map[string]any     `json:"metadata,omitempty"`
}

// ProviderChunk is the contract between a provider adapter and the
// Aggregator: the fields an adapter must extract from one raw wire chunk.
// A non-streaming response is expressed as a single chunk with Done set.
type ProviderChunk struct {
	ContentDelta    string
	ReasoningDelta  string
	ReasoningTokens int
	ToolCalls       []ToolCallFragment
	Done            bool
	Metadata        map[string]any
}

// ToolCallFragment is a partial tool call attributable to one chunk. Index is
// the provider's stable per-call index used to join fragments; ID and Name
// usually arrive on the first fragment while Arguments accrue across several.
type ToolCallFragment struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool is the contract for an application-supplied, model-callable function.
// It is provider-agnostic. Execute receives the raw argument JSON and returns
// the serialized result; validation against Parameters happens before
// invocation when the tool is executed through a Registry.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the tool's argument JSON Schema as a map
	// (compatible with LLM tool definitions).
	Parameters() map[string]any
	Execute(ctx context.Context, argsJSON []byte) ([]byte, error)
}

// ToolSchema is the provider-neutral description of one tool, shaped for
// inclusion in a provider request.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// SchemaOf extracts the wire-ready schema from a registered tool.
func SchemaOf(t Tool) ToolSchema {
	return ToolSchema{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()}
}
