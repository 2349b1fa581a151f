package unifiedllm

import (
	"encoding/json"
	"fmt"
)

// Family identifies a provider family and carries its tool-call decoding
// behavior. Variants are selected once at provider construction; they are not
// re-dispatched per call. Every family accepts two wire shapes: the fully
// nested form (outer wrapper with a nested function object) and the flattened
// pass-through form (name and arguments at top level).
type Family struct {
	name   string
	decode func(raw []byte) (ToolCall, error)
}

func (f Family) String() string { return f.name }

var (
	// FamilyOpenAI decodes OpenAI-compatible tool calls:
	// {"id":..,"type":"function","function":{"name":..,"arguments":..}}
	// or the already-flattened {"id":..,"name":..,"arguments":..}.
	FamilyOpenAI = Family{name: "openai", decode: decodeOpenAIToolCall}

	// FamilyStandard decodes tool calls already in the standardized shape,
	// for adapters whose backend emits the canonical form directly.
	FamilyStandard = Family{name: "standard", decode: decodeFlatToolCall}
)

// Normalizer converts raw provider tool calls into canonical ToolCall values
// for one response. It owns the monotonic counter used to synthesize ids for
// calls the provider left unidentified, so ids never collide within a
// response and normalization is deterministic for a given counter state.
// Not safe for concurrent use; create one per response.
type Normalizer struct {
	family Family
	nextID int
}

// NewNormalizer returns a Normalizer for the given provider family.
func NewNormalizer(family Family) *Normalizer {
	return &Normalizer{family: family}
}

// Normalize converts one raw tool call into the canonical form.
//
// When the call is malformed it returns both a best-effort ToolCall and a
// *MalformedToolCallError: callers that must not drop data (the Aggregator)
// keep the partial call when it still has a name, so downstream validation
// reports it as a ToolResult error instead of the stream crashing.
func (n *Normalizer) Normalize(raw []byte) (ToolCall, error) {
	tc, err := n.family.decode(raw)
	if err != nil {
		return ToolCall{}, &MalformedToolCallError{Reason: err.Error()}
	}
	return n.finish(tc)
}

// finish applies the normalization policy shared by the single-shot and
// streaming paths: empty arguments become "{}", a provider-given id is
// preferred, a missing id is synthesized, and the call is checked for a name
// and JSON-parsable arguments.
func (n *Normalizer) finish(tc ToolCall) (ToolCall, error) {
	if tc.Arguments == "" {
		tc.Arguments = "{}"
	}
	if tc.ID == "" {
		n.nextID++
		tc.ID = fmt.Sprintf("%s_call_%d", n.family.name, n.nextID)
	}
	if tc.Name == "" {
		return tc, &MalformedToolCallError{Reason: "missing tool name"}
	}
	if !json.Valid([]byte(tc.Arguments)) {
		return tc, &MalformedToolCallError{Reason: fmt.Sprintf("arguments for %q are not valid JSON", tc.Name)}
	}
	return tc, nil
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function *struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func decodeOpenAIToolCall(raw []byte) (ToolCall, error) {
	var w wireToolCall
	if err := json.Unmarshal(raw, &w); err != nil {
		return ToolCall{}, fmt.Errorf("undecodable tool call: %w", err)
	}
	if w.Function != nil {
		return ToolCall{ID: w.ID, Name: w.Function.Name, Arguments: w.Function.Arguments}, nil
	}
	return ToolCall{ID: w.ID, Name: w.Name, Arguments: w.Arguments}, nil
}

func decodeFlatToolCall(raw []byte) (ToolCall, error) {
	var tc ToolCall
	if err := json.Unmarshal(raw, &tc); err != nil {
		return ToolCall{}, fmt.Errorf("undecodable tool call: %w", err)
	}
	return tc, nil
}
