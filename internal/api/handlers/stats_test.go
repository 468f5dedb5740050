package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCacheStats struct {
	mock.Mock
}

func (m *MockCacheStats) CountByStatus(ctx context.Context) (map[domain.IngestionStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.IngestionStatus]int64), args.Error(1)
}

type MockIndexStats struct {
	mock.Mock
}

func (m *MockIndexStats) Stats(ctx context.Context) (*vectorindex.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vectorindex.Stats), args.Error(1)
}

type MockQueryLogCounter struct {
	mock.Mock
}

func (m *MockQueryLogCounter) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestStatsHandler_Get(t *testing.T) {
	cache := new(MockCacheStats)
	index := new(MockIndexStats)
	logs := new(MockQueryLogCounter)

	cache.On("CountByStatus", mock.Anything).Return(map[domain.IngestionStatus]int64{
		domain.IngestionStatusReady:   4,
		domain.IngestionStatusPending: 1,
		domain.IngestionStatusFailed:  2,
	}, nil)
	index.On("Stats", mock.Anything).Return(&vectorindex.Stats{TotalVectors: 120, Namespaces: 4}, nil)
	logs.On("Count", mock.Anything).Return(int64(37), nil)

	handler := NewStatsHandler(cache, index, logs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	handler.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(4), resp.Documents.Ready)
	assert.Equal(t, int64(7), resp.Documents.Total)
	assert.Equal(t, int64(120), resp.Vectors.TotalVectors)
	assert.Equal(t, int64(37), resp.QueriesTotal)
}

func TestStatsHandler_Get_CacheError(t *testing.T) {
	cache := new(MockCacheStats)
	cache.On("CountByStatus", mock.Anything).Return(nil, assert.AnError)

	handler := NewStatsHandler(cache, new(MockIndexStats), new(MockQueryLogCounter))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	handler.Get(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
