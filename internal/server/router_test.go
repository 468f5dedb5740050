package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aura-labs/aura/internal/api/handlers"
	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/pagination"
	"github.com/aura-labs/aura/internal/repository"
	"github.com/aura-labs/aura/internal/service"
	"github.com/aura-labs/aura/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Run(ctx context.Context, req service.RunRequest) (*service.RunResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RunResult), args.Error(1)
}

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

type MockQueryLogLister struct {
	mock.Mock
}

func (m *MockQueryLogLister) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*repository.QueryLogPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.QueryLogPageResult), args.Error(1)
}

const testToken = "test-api-token"

func setupRouter() (http.Handler, *MockPipeline) {
	pipeline := new(MockPipeline)
	cache := new(MockCacheStats)
	index := new(MockIndexStats)
	counter := new(MockQueryLogCounter)
	lister := new(MockQueryLogLister)

	cache.On("CountByStatus", mock.Anything).Return(map[domain.IngestionStatus]int64{}, nil).Maybe()
	index.On("Stats", mock.Anything).Return(&vectorindex.Stats{}, nil).Maybe()
	counter.On("Count", mock.Anything).Return(int64(0), nil).Maybe()
	lister.On("ListWithCursor", mock.Anything, mock.Anything, mock.Anything).
		Return(&repository.QueryLogPageResult{Items: []*domain.QueryLog{}}, nil).Maybe()

	cfg := RouterConfig{
		APIToken:     testToken,
		QueryHandler: handlers.NewQueryHandler(pipeline),
		StatsHandler: handlers.NewStatsHandler(cache, index, counter),
		LogsHandler:  handlers.NewLogsHandler(lister),
	}

	return NewRouter(cfg), pipeline
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_APIRoutesRequireAuth(t *testing.T) {
	router, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/hackrx/run"},
		{http.MethodGet, "/api/v1/stats"},
		{http.MethodGet, "/api/v1/logs"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_RunWithValidAuth(t *testing.T) {
	router, pipeline := setupRouter()

	pipeline.On("Run", mock.Anything, mock.MatchedBy(func(req service.RunRequest) bool {
		// Request ID from middleware reaches the pipeline.
		return req.RequestID != ""
	})).Return(&service.RunResult{
		DocumentURL: "https://example.com/doc.pdf",
		Answers:     []domain.Answer{{Question: "q", Answer: "a"}},
	}, nil)

	body, _ := json.Marshal(handlers.RunRequest{
		DocumentURL: "https://example.com/doc.pdf",
		Questions:   []string{"q"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	pipeline.AssertExpectations(t)
}

func TestRouter_RequestDeadlineBoundsSlowPipeline(t *testing.T) {
	pipeline := new(MockPipeline)
	router := NewRouter(RouterConfig{
		APIToken:       testToken,
		QueryHandler:   handlers.NewQueryHandler(pipeline),
		StatsHandler:   handlers.NewStatsHandler(new(MockCacheStats), new(MockIndexStats), new(MockQueryLogCounter)),
		LogsHandler:    handlers.NewLogsHandler(new(MockQueryLogLister)),
		RequestTimeout: 25 * time.Millisecond,
	})

	// A pipeline stuck waiting on another worker's pending ingestion only
	// returns once its context ends; the router must supply that deadline.
	pipeline.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable,
			"timed out waiting for document ingestion", context.DeadlineExceeded))

	body, _ := json.Marshal(handlers.RunRequest{
		DocumentURL: "https://example.com/doc.pdf",
		Questions:   []string{"q"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	start := time.Now()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Less(t, time.Since(start), 5*time.Second)
	pipeline.AssertExpectations(t)
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	router, _ := setupRouter()

	big := bytes.Repeat([]byte("a"), 2*1024*1024)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader(big))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
