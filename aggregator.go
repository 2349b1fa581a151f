package unifiedllm

import (
	"strings"
)

// Aggregator reconstructs one logical response from an ordered sequence of
// provider chunks. It tracks whichever fields each chunk carries (content,
// reasoning, tool-call fragments, metadata) without requiring a fixed phase
// order, and finalizes on the terminal chunk: buffered tool-call fragments
// are normalized exactly once, in order of first appearance.
//
// Chunks must be pushed strictly in arrival order; an Aggregator is not safe
// for concurrent use. Distinct Aggregators are fully independent. Abandoning
// an Aggregator mid-stream leaks nothing: fragment buffers hold no external
// handles.
type Aggregator struct {
	norm    *Normalizer
	mode    ReasoningMode
	scanner tagScanner

	content          strings.Builder
	patternReasoning strings.Builder
	nativeReasoning  strings.Builder
	reasoningTokens  int
	sawNative        bool
	reasoningDone    bool

	buffers map[int]*toolCallBuffer
	order   []int

	meta      map[string]any
	malformed int
	dropped   int

	done  bool
	final ChatResponse
}

type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// NewAggregator creates an Aggregator for one streaming call. Defaults:
// FamilyOpenAI, ReasoningOff.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	o := aggregatorOptions{family: FamilyOpenAI, mode: ReasoningOff}
	for _, opt := range opts {
		opt(&o)
	}
	return &Aggregator{
		norm:    NewNormalizer(o.family),
		mode:    o.mode,
		buffers: make(map[int]*toolCallBuffer),
		meta:    make(map[string]any),
	}
}

// ParseResponse runs the single-shot path: the whole response expressed as
// one synthetic chunk goes through the same per-chunk logic as streaming, so
// both modes produce identical tool-call and reasoning semantics.
func ParseResponse(chunk ProviderChunk, opts ...AggregatorOption) (ChatResponse, error) {
	a := NewAggregator(opts...)
	chunk.Done = true
	if _, err := a.Push(chunk); err != nil {
		return ChatResponse{}, err
	}
	resp, _ := a.Response()
	return resp, nil
}

// Push consumes one provider chunk and returns the normalized incremental
// event for it. After the terminal chunk has been processed, further pushes
// return *StreamProtocolError and the chunk is discarded; the assembled
// response is unaffected.
//
// If a reasoning tag is still open at stream end, text previously emitted as
// reasoning deltas is restored into content on the terminal chunk (fail
// open): consumers that concatenate ContentDelta end up with exactly
// Response().Content.
//
// The one exception is the native field preempting tag extraction in
// ReasoningAuto: the extracted span (tags included) is spliced back into
// content at the position it was cut from, which may precede content already
// streamed. The restored text is still emitted as a ContentDelta, but its
// position in the concatenation is best effort, and reasoning deltas emitted
// before the flip are withdrawn. Response() is authoritative for both.
func (a *Aggregator) Push(chunk ProviderChunk) (ChatStreamChunk, error) {
	if a.done {
		return ChatStreamChunk{}, &StreamProtocolError{Reason: "chunk received after terminal chunk"}
	}

	var out ChatStreamChunk

	if chunk.ReasoningDelta != "" && (a.mode == ReasoningAuto || a.mode == ReasoningNative) {
		if !a.sawNative && a.mode == ReasoningAuto {
			// The native field wins over tag scanning; undo any
			// pattern extraction already performed.
			if restored := a.restorePatternState(); restored != "" {
				out.ContentDelta += restored
			}
		}
		a.sawNative = true
		a.nativeReasoning.WriteString(chunk.ReasoningDelta)
		out.ReasoningDelta = chunk.ReasoningDelta
	}

	if chunk.ContentDelta != "" {
		if a.patternActive() {
			content, reasoning, closed := a.scanner.feed(chunk.ContentDelta)
			a.content.WriteString(content)
			a.patternReasoning.WriteString(reasoning)
			out.ContentDelta += content
			out.ReasoningDelta += reasoning
			if closed && !a.reasoningDone {
				a.reasoningDone = true
				out.IsReasoningComplete = true
			}
		} else {
			a.content.WriteString(chunk.ContentDelta)
			out.ContentDelta += chunk.ContentDelta
			if a.sawNative && !a.reasoningDone && chunk.ReasoningDelta == "" {
				// First content after native reasoning marks the phase end.
				a.reasoningDone = true
				out.IsReasoningComplete = true
			}
		}
	}

	if chunk.ReasoningTokens > 0 {
		a.reasoningTokens = chunk.ReasoningTokens
	}

	for _, frag := range chunk.ToolCalls {
		b, ok := a.buffers[frag.Index]
		if !ok {
			if frag.ID == "" && frag.Name == "" {
				// Fragment for an index never opened by a named fragment.
				a.dropped++
				continue
			}
			b = &toolCallBuffer{}
			a.buffers[frag.Index] = b
			a.order = append(a.order, frag.Index)
		}
		if b.id == "" {
			b.id = frag.ID
		}
		if b.name == "" {
			b.name = frag.Name
		}
		b.args.WriteString(frag.Arguments)
		out.ToolCallDeltas = append(out.ToolCallDeltas, frag)
	}

	for k, v := range chunk.Metadata {
		a.meta[k] = v
	}

	if chunk.Done {
		a.finalize(&out)
	}
	return out, nil
}

// Response returns the assembled response; ok is false until the terminal
// chunk has been pushed.
func (a *Aggregator) Response() (ChatResponse, bool) {
	return a.final, a.done
}

func (a *Aggregator) patternActive() bool {
	if a.sawNative {
		return false
	}
	return a.mode == ReasoningAuto || a.mode == ReasoningPattern
}

// restorePatternState abandons tag scanning and makes content whole again.
// If a tag opened, the full span (opening tag, text routed to reasoning, the
// closing tag when the pair completed, and the held-back tail) is spliced
// back into content at the position it was cut from. Returns the restored
// text so the caller can emit it as a delta.
func (a *Aggregator) restorePatternState() string {
	tail, _ := a.scanner.finalize()
	if a.scanner.state == scanOutside {
		a.content.WriteString(tail)
		return tail
	}
	restored := a.scanner.openTag() + a.patternReasoning.String()
	if a.scanner.state == scanDone {
		restored += a.scanner.tag.close
	}
	restored += tail
	a.patternReasoning.Reset()
	a.scanner.state = scanDone

	existing := a.content.String()
	at := min(a.scanner.openAt, len(existing))
	a.content.Reset()
	a.content.WriteString(existing[:at])
	a.content.WriteString(restored)
	a.content.WriteString(existing[at:])
	return restored
}

func (a *Aggregator) finalize(out *ChatStreamChunk) {
	if a.patternActive() {
		tail, incomplete := a.scanner.finalize()
		if incomplete {
			restored := a.scanner.openTag() + a.patternReasoning.String() + tail
			a.patternReasoning.Reset()
			a.content.WriteString(restored)
			out.ContentDelta += restored
			a.meta[MetaIncompleteReasoning] = true
		} else if tail != "" {
			a.content.WriteString(tail)
			out.ContentDelta += tail
		}
	}

	if a.sawNative && !a.reasoningDone && a.nativeReasoning.Len() > 0 {
		a.reasoningDone = true
		out.IsReasoningComplete = true
	}

	var calls []ToolCall
	for _, idx := range a.order {
		b := a.buffers[idx]
		tc, err := a.norm.finish(ToolCall{ID: b.id, Name: b.name, Arguments: b.args.String()})
		if err != nil {
			a.malformed++
			if tc.Name == "" {
				continue
			}
			// Kept with its id so executor validation reports the error.
		}
		calls = append(calls, tc)
	}

	content := a.content.String()
	reasoning := a.nativeReasoning.String()
	if !a.sawNative {
		reasoning = a.patternReasoning.String()
	}

	if a.malformed > 0 {
		a.meta[MetaMalformedToolCalls] = a.malformed
	}
	if a.dropped > 0 {
		a.meta[MetaDroppedFragments] = a.dropped
	}

	a.final = ChatResponse{
		Content:          content,
		ReasoningContent: reasoning,
		ReasoningTokens:  a.reasoningTokens,
		ToolCalls:        calls,
		Metadata:         a.meta,
	}
	a.done = true

	out.IsComplete = true
	out.ToolCalls = calls
	out.Metadata = a.meta
}
