package service

import (
	"context"
	"testing"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerator mocks the LLM generation client
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func someChunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{Text: "The grace period is thirty days.", Score: 0.92},
		{Text: "Premiums are due monthly.", Score: 0.71},
		{Text: "Coverage starts immediately.", Score: 0.55},
	}
}

func TestSynthesizer_Answer_StructuredOutput(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"answer": "Thirty days.", "sources": [1, 3], "confidence": 0.9}`, nil)

	s := NewSynthesizer(gen)

	answer, err := s.Answer(context.Background(), "What is the grace period?", someChunks())
	require.NoError(t, err)

	assert.Equal(t, "What is the grace period?", answer.Question)
	assert.Equal(t, "Thirty days.", answer.Answer)
	assert.Equal(t, []string{"The grace period is thirty days.", "Coverage starts immediately."}, answer.Sources)
	require.NotNil(t, answer.Confidence)
	assert.InDelta(t, 0.9, *answer.Confidence, 0.0001)
}

func TestSynthesizer_Answer_CodeFencedJSON(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n{\"answer\": \"Thirty days.\", \"sources\": [1], \"confidence\": 0.8}\n```", nil)

	s := NewSynthesizer(gen)

	answer, err := s.Answer(context.Background(), "q", someChunks())
	require.NoError(t, err)
	assert.Equal(t, "Thirty days.", answer.Answer)
	assert.Equal(t, []string{"The grace period is thirty days."}, answer.Sources)
}

func TestSynthesizer_Answer_MalformedOutputKeptVerbatim(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("The grace period is thirty days, per the policy.", nil)

	s := NewSynthesizer(gen)

	chunks := someChunks()
	answer, err := s.Answer(context.Background(), "q", chunks)
	require.NoError(t, err)

	assert.Equal(t, "The grace period is thirty days, per the policy.", answer.Answer)
	// Malformed output is attributed to every chunk.
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, chunks[0].Text, answer.Sources[0])
	assert.Nil(t, answer.Confidence)
}

func TestSynthesizer_Answer_NoChunksSkipsModel(t *testing.T) {
	gen := new(MockGenerator)

	s := NewSynthesizer(gen)

	answer, err := s.Answer(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, NoAnswerText, answer.Answer)
	assert.Empty(t, answer.Sources)
	require.NotNil(t, answer.Confidence)
	assert.Zero(t, *answer.Confidence)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSynthesizer_Answer_OutOfRangeSourcesDropped(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"answer": "Thirty days.", "sources": [0, 2, 99], "confidence": 1.5}`, nil)

	s := NewSynthesizer(gen)

	answer, err := s.Answer(context.Background(), "q", someChunks())
	require.NoError(t, err)

	assert.Equal(t, []string{"Premiums are due monthly."}, answer.Sources)
	// Confidence is clamped into [0,1].
	require.NotNil(t, answer.Confidence)
	assert.Equal(t, 1.0, *answer.Confidence)
}

func TestSynthesizer_Answer_GenerationErrorPropagates(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", domain.ErrRateLimited)

	s := NewSynthesizer(gen)

	_, err := s.Answer(context.Background(), "q", someChunks())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestSynthesizer_PromptContainsNumberedChunksAndQuestion(t *testing.T) {
	var captured string
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		captured = prompt
		return true
	})).Return(`{"answer": "ok", "sources": [], "confidence": 0.5}`, nil)

	s := NewSynthesizer(gen)

	_, err := s.Answer(context.Background(), "What is the grace period?", someChunks())
	require.NoError(t, err)

	assert.Contains(t, captured, "[1] The grace period is thirty days.")
	assert.Contains(t, captured, "[3] Coverage starts immediately.")
	assert.Contains(t, captured, "Question: What is the grace period?")
}
