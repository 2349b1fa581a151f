package openailike

import (
	"encoding/json"
	"io"

	"github.com/tidwall/gjson"

	unifiedllm "github.com/s-aravindh/unified-llm"
)

// Stream is an in-flight streamed completion. Each Recv returns one
// aggregated chunk; after the terminal chunk (IsComplete set) Recv returns
// io.EOF and Response yields the assembled ChatResponse.
type Stream struct {
	body io.ReadCloser
	dec  *sseDecoder
	agg  *unifiedllm.Aggregator

	meta     map[string]any
	finished bool
}

func newStream(body io.ReadCloser, agg *unifiedllm.Aggregator) *Stream {
	return &Stream{
		body: body,
		dec:  newSSEDecoder(body),
		agg:  agg,
	}
}

// Recv returns the next aggregated chunk. SSE events that carry nothing for
// the conversation (keepalives, empty deltas) are skipped. The provider's
// "[DONE]" marker, or the end of the response body, produces the terminal
// chunk with tool calls and collected metadata.
func (s *Stream) Recv() (unifiedllm.ChatStreamChunk, error) {
	for {
		if s.finished {
			return unifiedllm.ChatStreamChunk{}, io.EOF
		}

		data, err := s.dec.NextData()
		if err == io.EOF {
			return s.finish()
		}
		if err != nil {
			return unifiedllm.ChatStreamChunk{}, &APIError{Kind: ErrKindParse, Message: "read stream", Cause: err}
		}
		if data == "[DONE]" {
			return s.finish()
		}

		var in chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &in); err != nil {
			return unifiedllm.ChatStreamChunk{}, &APIError{Kind: ErrKindParse, Message: "decode stream chunk", Raw: []byte(data), Cause: err}
		}

		chunk, empty := s.mapChunk([]byte(data), in)
		if empty {
			continue
		}

		out, err := s.agg.Push(chunk)
		if err != nil {
			return unifiedllm.ChatStreamChunk{}, err
		}
		return out, nil
	}
}

// Response returns the assembled response once the terminal chunk has been
// received.
func (s *Stream) Response() (unifiedllm.ChatResponse, bool) {
	return s.agg.Response()
}

func (s *Stream) Close() error {
	return s.body.Close()
}

func (s *Stream) finish() (unifiedllm.ChatStreamChunk, error) {
	s.finished = true
	out, err := s.agg.Push(unifiedllm.ProviderChunk{Done: true, Metadata: s.meta})
	if err != nil {
		return unifiedllm.ChatStreamChunk{}, err
	}
	return out, nil
}

// mapChunk converts one SSE payload into a ProviderChunk. Identity and usage
// metadata is retained on the stream and attached to the terminal chunk.
func (s *Stream) mapChunk(raw []byte, in chatCompletionChunk) (unifiedllm.ProviderChunk, bool) {
	if in.ID != "" || in.Model != "" {
		s.rememberMeta("id", in.ID)
		s.rememberMeta("model", in.Model)
	}
	if v := gjson.GetBytes(raw, "usage"); v.IsObject() {
		if s.meta == nil {
			s.meta = make(map[string]any)
		}
		s.meta["usage"] = v.Value()
	}

	var chunk unifiedllm.ProviderChunk
	if len(in.Choices) == 0 {
		if in.Usage != nil && in.Usage.CompletionTokensDetails != nil {
			chunk.ReasoningTokens = in.Usage.CompletionTokensDetails.ReasoningTokens
			return chunk, false
		}
		return chunk, true
	}

	choice := in.Choices[0]
	chunk.ContentDelta = choice.Delta.Content
	chunk.ReasoningDelta = choice.Delta.ReasoningContent
	for _, tc := range choice.Delta.ToolCalls {
		chunk.ToolCalls = append(chunk.ToolCalls, unifiedllm.ToolCallFragment{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		s.rememberMeta("finish_reason", *choice.FinishReason)
	}
	if in.Usage != nil && in.Usage.CompletionTokensDetails != nil {
		chunk.ReasoningTokens = in.Usage.CompletionTokensDetails.ReasoningTokens
	}

	empty := chunk.ContentDelta == "" && chunk.ReasoningDelta == "" &&
		len(chunk.ToolCalls) == 0 && chunk.ReasoningTokens == 0
	return chunk, empty
}

func (s *Stream) rememberMeta(key, value string) {
	if value == "" {
		return
	}
	if s.meta == nil {
		s.meta = make(map[string]any)
	}
	if _, ok := s.meta[key]; !ok {
		s.meta[key] = value
	}
}
