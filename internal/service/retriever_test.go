package service

import (
	"context"
	"testing"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuestionEmbedder mocks single-text embedding
type MockQuestionEmbedder struct {
	mock.Mock
}

func (m *MockQuestionEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockVectorQuerier mocks the vector index query side
type MockVectorQuerier struct {
	mock.Mock
}

func (m *MockVectorQuerier) Query(ctx context.Context, namespace string, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, namespace, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

func TestRetriever_Retrieve_FiltersBelowRelevanceFloor(t *testing.T) {
	ctx := context.Background()
	vector := []float32{0.1, 0.2}

	embedder := new(MockQuestionEmbedder)
	index := new(MockVectorQuerier)

	embedder.On("EmbedOne", ctx, "the question").Return(vector, nil)
	index.On("Query", ctx, "ns", vector, 5).Return([]domain.RetrievedChunk{
		{Text: "relevant", Score: 0.8},
		{Text: "borderline", Score: 0.3},
		{Text: "noise", Score: 0.1},
	}, nil)

	r := NewRetriever(embedder, index, 5, 0.3)

	chunks, err := r.Retrieve(ctx, "ns", "the question")
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "relevant", chunks[0].Text)
	assert.Equal(t, "borderline", chunks[1].Text)

	embedder.AssertExpectations(t)
	index.AssertExpectations(t)
}

func TestRetriever_Retrieve_EmptyResultIsValid(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockQuestionEmbedder)
	index := new(MockVectorQuerier)

	embedder.On("EmbedOne", ctx, "q").Return([]float32{1}, nil)
	index.On("Query", ctx, "ns", []float32{1}, 5).Return([]domain.RetrievedChunk{
		{Text: "all noise", Score: 0.05},
	}, nil)

	r := NewRetriever(embedder, index, 5, 0.3)

	chunks, err := r.Retrieve(ctx, "ns", "q")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetriever_Retrieve_EmbeddingErrorPropagates(t *testing.T) {
	embedder := new(MockQuestionEmbedder)
	index := new(MockVectorQuerier)

	embedder.On("EmbedOne", mock.Anything, "q").Return(nil, domain.ErrRateLimited)

	r := NewRetriever(embedder, index, 5, 0.3)

	_, err := r.Retrieve(context.Background(), "ns", "q")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	index.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_DefaultTopK(t *testing.T) {
	embedder := new(MockQuestionEmbedder)
	index := new(MockVectorQuerier)

	embedder.On("EmbedOne", mock.Anything, "q").Return([]float32{1}, nil)
	index.On("Query", mock.Anything, "ns", []float32{1}, 5).Return([]domain.RetrievedChunk{}, nil)

	r := NewRetriever(embedder, index, 0, 0)

	_, err := r.Retrieve(context.Background(), "ns", "q")
	require.NoError(t, err)
	index.AssertExpectations(t)
}
