package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortPassthrough(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitMessage("hello", MaxChunkLen))
	assert.Equal(t, []string{""}, SplitMessage("", MaxChunkLen))
}

func TestSplitMessagePrefersNewline(t *testing.T) {
	s := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 10)
	chunks := SplitMessage(s, 15)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	assert.Equal(t, strings.Repeat("b", 10), chunks[1])
}

func TestSplitMessagePrefersSpaceWithoutNewline(t *testing.T) {
	s := "alpha beta gamma delta"
	chunks := SplitMessage(s, 12)
	require.Len(t, chunks, 2)
	assert.Equal(t, "alpha beta", chunks[0])
	assert.Equal(t, "gamma delta", chunks[1])
}

func TestSplitMessageHardCut(t *testing.T) {
	s := strings.Repeat("x", 25)
	chunks := SplitMessage(s, 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 10), chunks[0])
	assert.Equal(t, strings.Repeat("x", 10), chunks[1])
	assert.Equal(t, strings.Repeat("x", 5), chunks[2])
}

func TestSplitMessageLongTextRoundTrip(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 900; i++ {
		b.WriteString("sentence number filler ")
	}
	s := strings.TrimSpace(b.String())
	require.Greater(t, len(s), 2*MaxChunkLen)

	chunks := SplitMessage(s, MaxChunkLen)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), MaxChunkLen)
		assert.NotEmpty(t, c)
	}

	// Boundary whitespace is the only thing lost.
	assert.Equal(t, s, strings.Join(chunks, " "))
}

func TestSplitMessageMultibyte(t *testing.T) {
	s := strings.Repeat("日", 7)
	chunks := SplitMessage(s, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, s, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 3)
	}
}
