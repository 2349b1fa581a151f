package unifiedllm

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to check.
var (
	ErrToolNotFound = errors.New("tool not found")
	ErrTimeout      = errors.New("tool execution timeout")
	ErrValidation   = errors.New("validation failed")
)

// SchemaError reports that a tool schema could not be built from the supplied
// function or schema literal. It is fatal at configuration time: NewTool and
// NewDynamicTool return it and the tool is never registered.
type SchemaError struct {
	Tool string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("tool %q: schema generation failed: %v", e.Tool, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// MalformedToolCallError reports a provider-emitted tool call that could not
// be normalized: missing name, or arguments that are not valid JSON text.
// The Aggregator recovers from it by surfacing the call with an error marker
// rather than failing the whole response.
type MalformedToolCallError struct {
	Reason string
}

func (e *MalformedToolCallError) Error() string {
	return "malformed tool call: " + e.Reason
}

// StreamProtocolError reports a chunk that violates the stream contract, such
// as a chunk arriving after the terminal chunk. The offending chunk is
// discarded; an otherwise-good stream is not aborted.
type StreamProtocolError struct {
	Reason string
}

func (e *StreamProtocolError) Error() string {
	return "stream protocol violation: " + e.Reason
}

// ValidationError reports invalid input: a malformed conversation, a tool
// call naming an unregistered tool, or arguments rejected by the tool's
// schema. The message is safe to send back to the model for self-correction.
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ToolExecutionError represents an internal failure while running a tool:
// the function returned an error, panicked, timed out, or produced a
// non-serializable result. It is always contained into a ToolResult with
// IsError set; ExecuteAll never propagates it as an error.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.ToolName, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// wrapJSONParseError returns a ValidationError for JSON unmarshal failures so
// parse errors read consistently across the parse and execute paths.
func wrapJSONParseError(err error) error {
	return &ValidationError{Reason: "json parse error: " + err.Error(), Err: ErrValidation}
}

// panicError wraps a recovered panic value; used by Registry and WithRecovery.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
