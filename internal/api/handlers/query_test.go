package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aura-labs/aura/internal/api"
	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPipeline mocks the pipeline service
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

func postRun(t *testing.T, handler *QueryHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.Run(w, req)
	return w
}

func TestQueryHandler_Run_Success(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("Run", mock.Anything, mock.MatchedBy(func(req service.RunRequest) bool {
		return req.DocumentURL == "https://example.com/doc.pdf" && len(req.Questions) == 2
	})).Return(&service.RunResult{
		DocumentURL: "https://example.com/doc.pdf",
		Answers: []domain.Answer{
			{Question: "q1", Answer: "a1", Sources: []string{"s1"}, Confidence: domain.ConfidenceValue(0.9)},
			{Question: "q2", Answer: "a2", Sources: nil},
		},
		ProcessingTimeMs: 321,
	}, nil)

	handler := NewQueryHandler(pipeline)

	w := postRun(t, handler, RunRequest{
		DocumentURL: "https://example.com/doc.pdf",
		Questions:   []string{"q1", "q2"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://example.com/doc.pdf", resp.DocumentURL)
	assert.Equal(t, int64(321), resp.ProcessingTimeMs)
	require.Len(t, resp.Answers, 2)
	assert.Equal(t, "a1", resp.Answers[0].Answer)
	require.NotNil(t, resp.Answers[0].Confidence)
	assert.InDelta(t, 0.9, *resp.Answers[0].Confidence, 0.0001)
	// Nil sources serialize as an empty list, not null.
	assert.NotNil(t, resp.Answers[1].Sources)
	assert.Empty(t, resp.Answers[1].Sources)

	pipeline.AssertExpectations(t)
}

func TestQueryHandler_Run_InvalidBody(t *testing.T) {
	handler := NewQueryHandler(new(MockPipeline))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.Run(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryHandler_Run_ValidationError(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("Run", mock.Anything, mock.Anything).Return(nil, domain.ErrNoQuestions)

	handler := NewQueryHandler(pipeline)

	w := postRun(t, handler, RunRequest{DocumentURL: "https://example.com/doc.pdf"})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "at least one question is required", resp.Error)
}

func TestQueryHandler_Run_DownloadError(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("Run", mock.Anything, mock.Anything).Return(nil, domain.ErrDownloadFailed)

	handler := NewQueryHandler(pipeline)

	w := postRun(t, handler, RunRequest{
		DocumentURL: "https://example.com/doc.pdf",
		Questions:   []string{"q"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
