package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	require.Equal(t, []string{"hello"}, Split("hello"))
}

func TestSplitEmpty(t *testing.T) {
	require.Nil(t, Split(""))
}

func TestSplitExactlyHardLimit(t *testing.T) {
	text := strings.Repeat("a", HardLimit)
	require.Equal(t, []string{text}, Split(text))
}

func TestSplitPrefersNewlineInWindow(t *testing.T) {
	// 2100 chars with a newline at index 1850: cut there, the newline
	// starts the second chunk.
	text := strings.Repeat("a", 1850) + "\n" + strings.Repeat("b", 249)
	chunks := Split(text)
	require.Len(t, chunks, 2)
	require.Equal(t, strings.Repeat("a", 1850), chunks[0])
	require.Equal(t, "\n"+strings.Repeat("b", 249), chunks[1])
}

func TestSplitIgnoresNewlineBeforeSoftLimit(t *testing.T) {
	text := strings.Repeat("a", 100) + "\n" + strings.Repeat("b", 2100)
	chunks := Split(text)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], HardLimit)
}

func TestSplitHardCutWithoutNewline(t *testing.T) {
	text := strings.Repeat("x", 4500)
	chunks := Split(text)
	require.Equal(t, []string{
		strings.Repeat("x", 2000),
		strings.Repeat("x", 2000),
		strings.Repeat("x", 500),
	}, chunks)
}

func TestSplitNeverBreaksRunes(t *testing.T) {
	text := strings.Repeat("é", 1500) // 3000 bytes, 2-byte runes
	chunks := Split(text)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], 2000)
	for _, c := range chunks {
		require.True(t, len(c) <= HardLimit)
		require.Equal(t, c, string([]rune(c))) // valid UTF-8 only
	}
}

func TestSplitConcatenationPreserved(t *testing.T) {
	text := strings.Repeat("word ", 1000) + "\nlast line"
	require.Equal(t, text, strings.Join(Split(text), ""))
}
