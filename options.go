package unifiedllm

import (
	"context"
	"time"
)

// toolOptions hold optional per-tool settings.
type toolOptions struct {
	strict  bool
	timeout time.Duration
}

// ToolOption configures a tool built by NewTool or NewDynamicTool.
type ToolOption func(*toolOptions)

// WithStrict sets strict schema mode: additionalProperties: false for all
// objects and all properties required (OpenAI Structured Outputs).
func WithStrict() ToolOption {
	return func(o *toolOptions) {
		o.strict = true
	}
}

// WithTimeout sets a per-tool execution timeout, overriding the registry
// default for this tool.
func WithTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) {
		o.timeout = d
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	recoverPanics  bool
	maxErrorLen    int
	onBefore       func(context.Context, ToolCall)
	onAfter        func(context.Context, ToolCall, ToolResult, time.Duration)
}

// WithDefaultTimeout sets the default execution timeout for tools.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions (semaphore).
// Pass 0 or negative to disable the limit.
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithRecoverPanics enables panic recovery in Execute (contained as a
// ToolResult error). When disabled a tool panic propagates to the Execute
// caller.
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithMaxErrorLength bounds the length of error descriptions written into
// ToolResult.Content. Pass 0 to keep the default.
func WithMaxErrorLength(n int) RegistryOption {
	return func(o *registryOptions) {
		if n > 0 {
			o.maxErrorLen = n
		}
	}
}

// WithOnBeforeExecute sets a hook called before each tool execution.
func WithOnBeforeExecute(fn func(context.Context, ToolCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool execution finishes,
// success or error, with the final result and wall-clock duration.
func WithOnAfterExecute(fn func(context.Context, ToolCall, ToolResult, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

// AggregatorOption configures an Aggregator or ParseResponse call.
type AggregatorOption func(*aggregatorOptions)

type aggregatorOptions struct {
	family Family
	mode   ReasoningMode
}

// WithFamily selects the provider family used to normalize tool calls.
func WithFamily(f Family) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.family = f
	}
}

// WithReasoningMode selects the reasoning extraction strategy. The default is
// ReasoningOff; providers typically pass ReasoningAuto when the caller
// requested reasoning.
func WithReasoningMode(m ReasoningMode) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.mode = m
	}
}
