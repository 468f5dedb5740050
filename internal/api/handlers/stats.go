package handlers

import (
	"context"
	"net/http"

	"github.com/aura-labs/aura/internal/api"
	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/vectorindex"
)

type CacheStatsSource interface {
	CountByStatus(ctx context.Context) (map[domain.IngestionStatus]int64, error)
}

type IndexStatsSource interface {
	Stats(ctx context.Context) (*vectorindex.Stats, error)
}

type QueryLogCounter interface {
	Count(ctx context.Context) (int64, error)
}

type StatsHandler struct {
	cache     CacheStatsSource
	index     IndexStatsSource
	queryLogs QueryLogCounter
}

func NewStatsHandler(cache CacheStatsSource, index IndexStatsSource, queryLogs QueryLogCounter) *StatsHandler {
	return &StatsHandler{cache: cache, index: index, queryLogs: queryLogs}
}

type DocumentStats struct {
	Ready   int64 `json:"ready"`
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}

type StatsResponse struct {
	Success      bool               `json:"success"`
	Documents    DocumentStats      `json:"documents"`
	Vectors      *vectorindex.Stats `json:"vectors"`
	QueriesTotal int64              `json:"queries_total"`
}

// Get reports cache, index and query-log totals.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.cache.CountByStatus(ctx)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	indexStats, err := h.index.Stats(ctx)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	queries, err := h.queryLogs.Count(ctx)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := DocumentStats{
		Ready:   counts[domain.IngestionStatusReady],
		Pending: counts[domain.IngestionStatusPending],
		Failed:  counts[domain.IngestionStatusFailed],
	}
	docs.Total = docs.Ready + docs.Pending + docs.Failed

	api.JSON(w, http.StatusOK, StatsResponse{
		Success:      true,
		Documents:    docs,
		Vectors:      indexStats,
		QueriesTotal: queries,
	})
}
