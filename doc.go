// Package unifiedllm normalizes interaction with heterogeneous LLM backends
// behind one provider-agnostic interface: response format translation,
// incremental streaming reconstruction, and application-controlled tool
// execution.
//
// # Overview
//
// Providers emit partial, provider-shaped response fragments. The Aggregator
// consumes them in arrival order and reconstructs a single logical
// ChatResponse: assembled text, reasoning content (native field or tag-based
// extraction), and standardized tool calls. Tool-call fragments split across
// chunks are buffered by index and normalized exactly once, when the stream
// terminates. The same per-chunk logic backs the single-shot ParseResponse
// path, so streaming and non-streaming parsing are guaranteed to agree.
//
// Tool execution is pure data in, data out: providers return ToolCall values
// and never invoke anything. The application hands them to a Registry, which
// validates arguments against the same JSON Schema shown to the model,
// executes the registered function under a bounded timeout with panic
// recovery, and returns ToolResult records ready to append to the
// conversation. One failing tool never aborts its siblings.
//
// # Key concepts
//
//   - Single Source of Truth: one argument struct drives both the schema sent
//     to the model and the validation of incoming JSON.
//   - Partial Success: ExecuteAll collects all results in input order; errors
//     are contained in ToolResult.IsError, never returned as an error.
//   - Fail Open: a reasoning tag opened but never closed becomes ordinary
//     content; a malformed fragment is dropped without aborting the stream.
//
// # Example
//
//	type Args struct { Expression string `json:"expression"` }
//	tool, err := unifiedllm.NewTool("calculate", "Evaluate arithmetic", func(_ context.Context, a Args) (string, error) {
//	    return evaluate(a.Expression)
//	})
//	if err != nil { ... }
//	reg := unifiedllm.NewRegistry()
//	reg.Register(tool)
//	resp, err := client.Chat(ctx, req)        // providers/openailike
//	results := reg.ExecuteAll(ctx, resp.ToolCalls)
package unifiedllm
