package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage_ShortTextSinglePart(t *testing.T) {
	parts := SplitMessage("hello", MaxMessageLength)
	require.Len(t, parts, 1)
	assert.Equal(t, "hello", parts[0])
}

func TestSplitMessage_LongTextFitsLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("line of build output that repeats\n")
	}
	text := b.String() // ~10k chars

	parts := SplitMessage(text, MaxMessageLength)
	require.GreaterOrEqual(t, len(parts), 3)
	for i, part := range parts {
		assert.LessOrEqual(t, len(part), MaxMessageLength, "part %d over limit", i)
		assert.NotEmpty(t, part)
	}

	// Nothing lost beyond the newlines trimmed at cut points.
	joined := strings.Join(parts, "\n")
	assert.Equal(t,
		strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", ""),
		strings.ReplaceAll(joined, "\n", ""))
}

func TestSplitMessage_PrefersNewlineCut(t *testing.T) {
	text := strings.Repeat("a", 50) + "\n" + strings.Repeat("b", 50)
	parts := SplitMessage(text, 80)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("a", 50), parts[0])
	assert.Equal(t, strings.Repeat("b", 50), parts[1])
}

func TestSplitMessage_ClosesAndReopensSpanningElements(t *testing.T) {
	var b strings.Builder
	b.WriteString("<b>")
	for i := 0; i < 40; i++ {
		b.WriteString("bold log line from the runner\n")
	}
	b.WriteString("</b>")

	parts := SplitMessage(b.String(), 400)
	require.Greater(t, len(parts), 1)
	for i, part := range parts {
		assert.LessOrEqual(t, len(part), 400)
		assert.Equal(t,
			strings.Count(part, "<b>"), strings.Count(part, "</b>"),
			"part %d has unbalanced tags: %q", i, part)
	}
	// Continuation parts reopen the element.
	assert.True(t, strings.HasPrefix(parts[1], "<b>"))
}

func TestSplitMessage_ElementOpenedMidSegmentStillFits(t *testing.T) {
	// The element opens after the part starts, so its closing tag is not
	// covered by the carry-over accounting at segment entry.
	text := "<b>" + strings.Repeat("a", 9000)
	parts := SplitMessage(text, MaxMessageLength)
	require.Greater(t, len(parts), 1)
	for i, part := range parts {
		assert.LessOrEqual(t, len(part), MaxMessageLength, "part %d over limit", i)
	}

	text = "prefix <i>" + strings.Repeat("b", 200)
	parts = SplitMessage(text, 100)
	for i, part := range parts {
		assert.LessOrEqual(t, len(part), 100, "part %d over limit", i)
	}
	// The spanning element closes at the cut and reopens after it.
	assert.True(t, strings.HasSuffix(parts[0], "</i>"))
	assert.True(t, strings.HasPrefix(parts[1], "<i>"))
}

func TestSplitMessage_NeverCutsInsideTag(t *testing.T) {
	link := `<a href="https://example.com/very/long/path/to/a/workflow/run">run</a>`
	text := strings.Repeat("x", 60) + "\n" + link
	parts := SplitMessage(text, 80)
	for _, part := range parts {
		assert.Equal(t, strings.Count(part, "<"), strings.Count(part, ">"))
	}
}

func TestSplitMessage_ZeroLimitDefaults(t *testing.T) {
	parts := SplitMessage("hi", 0)
	require.Len(t, parts, 1)
	assert.Equal(t, "hi", parts[0])
}
