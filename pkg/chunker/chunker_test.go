package chunker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/chunker"
)

func TestChunk_WindowAndStride(t *testing.T) {
	chunks, err := chunker.Chunk("the quick brown fox jumps over the lazy dog", 4, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"the quick brown fox",
		"fox jumps over the",
		"the lazy dog",
	}, chunks)
}

func TestChunk_EmptyText(t *testing.T) {
	chunks, err := chunker.Chunk("", 4, 1)

	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = chunker.Chunk("   \n\t  ", 4, 1)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_NoOverlap(t *testing.T) {
	chunks, err := chunker.Chunk("a b c d e f", 2, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c d", "e f"}, chunks)
}

func TestChunk_SingleWordWindow(t *testing.T) {
	chunks, err := chunker.Chunk("one two three", 1, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, chunks)
}

func TestChunk_ShortText(t *testing.T) {
	chunks, err := chunker.Chunk("just two", 300, 50)

	require.NoError(t, err)
	assert.Equal(t, []string{"just two"}, chunks)
}

func TestChunk_NormalizesWhitespace(t *testing.T) {
	chunks, err := chunker.Chunk("a\tb\n\nc   d", 4, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"a b c d"}, chunks)
}

func TestChunk_InvalidArguments(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		overlap    int
	}{
		{"negative window", -1, 0},
		{"negative overlap", 4, -1},
		{"overlap equals window", 4, 4},
		{"overlap exceeds window", 4, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chunker.Chunk("some text", tt.windowSize, tt.overlap)
			assert.True(t, errors.Is(err, models.ErrInvalidArgument))
		})
	}
}

func TestChunk_CountFormula(t *testing.T) {
	// len(chunks) == ceil((n - overlap) / (window - overlap)) within one
	// for the final partial window.
	words := strings.Fields(strings.Repeat("word ", 97))
	text := strings.Join(words, " ")

	chunks, err := chunker.Chunk(text, 10, 3)
	require.NoError(t, err)

	n := len(words)
	stride := 10 - 3
	expected := (n - 3 + stride - 1) / stride
	assert.InDelta(t, expected, len(chunks), 1)
}

func TestChunk_Deterministic(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	first, err := chunker.Chunk(text, 3, 1)
	require.NoError(t, err)
	second, err := chunker.Chunk(text, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
