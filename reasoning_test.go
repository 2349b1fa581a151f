package unifiedllm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedAll drains a scanner over the given deltas plus finalize.
func feedAll(t *testing.T, deltas []string) (content, reasoning string, incomplete bool) {
	t.Helper()
	var s tagScanner
	for _, d := range deltas {
		c, r, _ := s.feed(d)
		content += c
		reasoning += r
	}
	tail, inc := s.finalize()
	if inc {
		content += s.openTag() + reasoning + tail
		reasoning = ""
	} else {
		content += tail
	}
	return content, reasoning, inc
}

func TestTagScanner_SplitAtEveryBoundary(t *testing.T) {
	// The scanner must produce the same result no matter where the chunk
	// boundary falls, including mid-tag.
	full := "<think>deep thought</think>The answer is 42."
	for i := 0; i <= len(full); i++ {
		t.Run(fmt.Sprintf("split_%d", i), func(t *testing.T) {
			content, reasoning, incomplete := feedAll(t, []string{full[:i], full[i:]})
			assert.False(t, incomplete)
			assert.Equal(t, "The answer is 42.", content)
			assert.Equal(t, "deep thought", reasoning)
		})
	}
}

func TestTagScanner_AllTags(t *testing.T) {
	for _, tp := range reasoningTags {
		t.Run(tp.open, func(t *testing.T) {
			content, reasoning, incomplete := feedAll(t, []string{tp.open + "r" + tp.close + "c"})
			assert.False(t, incomplete)
			assert.Equal(t, "c", content)
			assert.Equal(t, "r", reasoning)
		})
	}
}

func TestTagScanner_FirstPairWins(t *testing.T) {
	content, reasoning, _ := feedAll(t, []string{"<think>a</think>mid<reasoning>b</reasoning>"})
	assert.Equal(t, "a", reasoning)
	// A second tag after the first pair closed is ordinary content.
	assert.Equal(t, "mid<reasoning>b</reasoning>", content)
}

func TestTagScanner_UnclosedFailsOpen(t *testing.T) {
	content, reasoning, incomplete := feedAll(t, []string{"<think>never closed"})
	assert.True(t, incomplete)
	assert.Equal(t, "<think>never closed", content)
	assert.Empty(t, reasoning)
}

func TestTagScanner_NoTags(t *testing.T) {
	content, reasoning, incomplete := feedAll(t, []string{"plain ", "text < not a tag"})
	assert.False(t, incomplete)
	assert.Equal(t, "plain text < not a tag", content)
	assert.Empty(t, reasoning)
}

func TestTagScanner_AngleBracketHoldback(t *testing.T) {
	// "<th" could still become "<think>"; it must not be emitted until
	// disambiguated.
	var s tagScanner
	c, r, _ := s.feed("before <th")
	assert.Equal(t, "before ", c)
	assert.Empty(t, r)

	c, r, _ = s.feed("e end")
	assert.Equal(t, "<the end", c)
	assert.Empty(t, r)

	tail, incomplete := s.finalize()
	assert.False(t, incomplete)
	assert.Empty(t, tail)
}

func TestHoldbackLen(t *testing.T) {
	tags := openingTags()
	assert.Equal(t, 0, holdbackLen("hello", tags))
	assert.Equal(t, 1, holdbackLen("hello<", tags))
	assert.Equal(t, 3, holdbackLen("x<th", tags))
	// A complete tag is not a proper prefix; nothing is held back.
	assert.Equal(t, 0, holdbackLen("<think>", []string{"</think>"}))
}

func TestFindOpeningTag(t *testing.T) {
	idx, hit := findOpeningTag("abc<reasoning>x")
	require.Equal(t, 3, idx)
	assert.Equal(t, "<reasoning>", hit.open)

	idx, _ = findOpeningTag("no tags here")
	assert.Equal(t, -1, idx)

	// Earliest occurrence wins over declaration order.
	idx, hit = findOpeningTag("<analysis>..<think>")
	require.Equal(t, 0, idx)
	assert.Equal(t, "<analysis>", hit.open)
}
