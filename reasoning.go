package unifiedllm

import "strings"

// ReasoningMode selects how reasoning content is extracted from a response.
type ReasoningMode int

const (
	// ReasoningOff disables extraction; content passes through untouched.
	ReasoningOff ReasoningMode = iota
	// ReasoningAuto uses the provider's native reasoning field when the
	// stream carries one and falls back to tag-pattern scanning otherwise.
	// The native field always wins once seen.
	ReasoningAuto
	// ReasoningNative only honors the native reasoning field.
	ReasoningNative
	// ReasoningPattern only scans content for reasoning tags.
	ReasoningPattern
)

type tagPair struct {
	open  string
	close string
}

// Recognized reasoning tag pairs, in precedence order. The first pair whose
// opening tag appears in the content wins for the whole response.
var reasoningTags = []tagPair{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<reasoning>", "</reasoning>"},
	{"<analysis>", "</analysis>"},
}

const (
	scanOutside = iota
	scanInside
	scanDone
)

// tagScanner incrementally splits streamed content into visible text and
// tagged reasoning. A tag may be split across any chunk boundary: the scanner
// emits every certainly-safe prefix immediately and holds back only the
// trailing characters that could still turn into a tag (at most one character
// short of the longest tag). Once a pair has opened and closed, scanning
// stops; later tags are ordinary content.
type tagScanner struct {
	pending string
	state   int
	tag     tagPair

	// emitted counts content characters returned so far; openAt records the
	// emitted count at the moment the tag opened, so an abandoned extraction
	// can be restored at the exact position the span was cut from.
	emitted int
	openAt  int
}

// feed consumes one content delta and returns the visible-content and
// reasoning portions that became unambiguous, plus whether the reasoning span
// closed during this call.
func (s *tagScanner) feed(delta string) (content, reasoning string, closed bool) {
	s.pending += delta
	defer func() { s.emitted += len(content) }()
	for {
		switch s.state {
		case scanOutside:
			idx, hit := findOpeningTag(s.pending)
			if idx < 0 {
				hold := holdbackLen(s.pending, openingTags())
				content += s.pending[:len(s.pending)-hold]
				s.pending = s.pending[len(s.pending)-hold:]
				return content, reasoning, closed
			}
			content += s.pending[:idx]
			s.pending = s.pending[idx+len(hit.open):]
			s.tag = hit
			s.state = scanInside
			s.openAt = s.emitted + len(content)
		case scanInside:
			i := strings.Index(s.pending, s.tag.close)
			if i < 0 {
				hold := holdbackLen(s.pending, []string{s.tag.close})
				reasoning += s.pending[:len(s.pending)-hold]
				s.pending = s.pending[len(s.pending)-hold:]
				return content, reasoning, closed
			}
			reasoning += s.pending[:i]
			s.pending = s.pending[i+len(s.tag.close):]
			s.state = scanDone
			closed = true
		case scanDone:
			content += s.pending
			s.pending = ""
			return content, reasoning, closed
		}
	}
}

// finalize flushes the held-back tail at stream end. incomplete reports that
// a tag was opened but never closed; the caller restores the opened span as
// ordinary content (fail open, no silent truncation).
func (s *tagScanner) finalize() (tail string, incomplete bool) {
	tail = s.pending
	s.pending = ""
	if s.state == scanInside {
		return tail, true
	}
	return tail, false
}

func (s *tagScanner) openTag() string { return s.tag.open }

// findOpeningTag returns the earliest opening-tag occurrence; ties go to the
// precedence order of reasoningTags.
func findOpeningTag(str string) (int, tagPair) {
	best := -1
	var hit tagPair
	for _, tp := range reasoningTags {
		if i := strings.Index(str, tp.open); i >= 0 && (best < 0 || i < best) {
			best = i
			hit = tp
		}
	}
	return best, hit
}

func openingTags() []string {
	out := make([]string, len(reasoningTags))
	for i, tp := range reasoningTags {
		out[i] = tp.open
	}
	return out
}

// holdbackLen returns the length of the longest suffix of str that is a
// proper prefix of any candidate tag: the part that cannot be emitted yet
// because the next chunk might complete the tag.
func holdbackLen(str string, candidates []string) int {
	hold := 0
	for _, c := range candidates {
		limit := min(len(str), len(c)-1)
		for k := limit; k > hold; k-- {
			if str[len(str)-k:] == c[:k] {
				hold = k
				break
			}
		}
	}
	return hold
}
