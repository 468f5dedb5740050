package chunker

import (
	"strings"
	"testing"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_SingleChunkWhenTextFitsWindow(t *testing.T) {
	chunks, err := Split("short text", Config{Window: 100, Overlap: 20})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len("short text"), chunks[0].CharEnd)
}

func TestSplit_EmptyTextIsError(t *testing.T) {
	_, err := Split("", Config{Window: 100, Overlap: 20})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = Split("   \n\t ", Config{Window: 100, Overlap: 20})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestSplit_InvalidWindow(t *testing.T) {
	_, err := Split("text", Config{Window: 10, Overlap: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidChunkWindow)

	_, err = Split("text", Config{Window: 10, Overlap: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidChunkWindow)

	_, err = Split("text", Config{Window: 0, Overlap: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidChunkWindow)
}

func TestSplit_StrideAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks, err := Split(text, Config{Window: 10, Overlap: 4})
	require.NoError(t, err)

	// stride 6: starts at 0, 6, 12, 18, 24
	require.Len(t, chunks, 5)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i*6, c.CharStart)
	}
	assert.Equal(t, 10, chunks[0].CharEnd)
	assert.Equal(t, 25, chunks[4].CharEnd)
	assert.Equal(t, "a", chunks[4].Text)
}

func TestSplit_RoundTripReconstructsText(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " +
		strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40)
	cfg := Config{Window: 100, Overlap: 30}

	chunks, err := Split(text, cfg)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	runes := []rune(text)
	var rebuilt []rune
	for _, c := range chunks {
		assert.Equal(t, string(runes[c.CharStart:c.CharEnd]), c.Text)
		if c.CharEnd > len(rebuilt) {
			rebuilt = append(rebuilt, []rune(c.Text)[len(rebuilt)-c.CharStart:]...)
		}
	}
	assert.Equal(t, text, string(rebuilt))
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("deterministic chunking input ", 100)
	cfg := DefaultConfig()

	first, err := Split(text, cfg)
	require.NoError(t, err)
	second, err := Split(text, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSplit_HandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30)
	chunks, err := Split(text, Config{Window: 50, Overlap: 10})
	require.NoError(t, err)

	runes := []rune(text)
	for _, c := range chunks {
		assert.Equal(t, string(runes[c.CharStart:c.CharEnd]), c.Text)
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].CharEnd)
}
