package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aura-labs/aura/internal/api"
	"github.com/aura-labs/aura/internal/pagination"
	"github.com/aura-labs/aura/internal/repository"
)

const maxLogPageSize = 100

type QueryLogLister interface {
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*repository.QueryLogPageResult, error)
}

type LogsHandler struct {
	logs QueryLogLister
}

func NewLogsHandler(logs QueryLogLister) *LogsHandler {
	return &LogsHandler{logs: logs}
}

type QueryLogEntry struct {
	ID               string   `json:"id"`
	DocumentURL      string   `json:"document_url"`
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	Sources          []string `json:"sources"`
	Confidence       *float64 `json:"confidence,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	RequestID        string   `json:"request_id,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

type LogsResponse struct {
	Success    bool            `json:"success"`
	Items      []QueryLogEntry `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// List returns answered questions, newest first, cursor-paginated.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxLogPageSize {
			parsed = maxLogPageSize
		}
		limit = parsed
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.logs.ListWithCursor(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]QueryLogEntry, len(page.Items))
	for i, entry := range page.Items {
		sources := entry.Sources
		if sources == nil {
			sources = []string{}
		}
		items[i] = QueryLogEntry{
			ID:               entry.ID,
			DocumentURL:      entry.DocumentURL,
			Question:         entry.Question,
			Answer:           entry.Answer,
			Sources:          sources,
			Confidence:       entry.Confidence,
			ProcessingTimeMs: entry.ProcessingTimeMs,
			RequestID:        entry.RequestID,
			CreatedAt:        entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	api.JSON(w, http.StatusOK, LogsResponse{
		Success:    true,
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}
