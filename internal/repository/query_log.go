package repository

import (
	"context"
	"encoding/json"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores answered questions for evaluation/feedback loops.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

// QueryLogPageResult is a cursor-paginated page of query logs.
type QueryLogPageResult struct {
	Items      []*domain.QueryLog `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

func (r *QueryLogRepository) Create(ctx context.Context, entry *domain.QueryLog) (string, error) {
	sourcesJSON, _ := json.Marshal(entry.Sources)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO query_logs (document_url, question, answer, sources, confidence, processing_time_ms, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.DocumentURL,
		entry.Question,
		entry.Answer,
		sourcesJSON,
		entry.Confidence,
		entry.ProcessingTimeMs,
		entry.RequestID,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *QueryLogRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*QueryLogPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT id, document_url, question, answer, sources, confidence, processing_time_ms, request_id, created_at
			 FROM query_logs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, document_url, question, answer, sources, confidence, processing_time_ms, request_id, created_at
			 FROM query_logs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.QueryLog
	for rows.Next() {
		var entry domain.QueryLog
		var sourcesJSON []byte
		if err := rows.Scan(&entry.ID, &entry.DocumentURL, &entry.Question, &entry.Answer, &sourcesJSON, &entry.Confidence, &entry.ProcessingTimeMs, &entry.RequestID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &entry.Sources); err != nil {
				return nil, err
			}
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(logs) > limit
	if hasMore {
		logs = logs[:limit]
	}

	var nextCursor string
	if hasMore && len(logs) > 0 {
		last := logs[len(logs)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &QueryLogPageResult{
		Items:      logs,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Count returns the total number of logged queries.
func (r *QueryLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM query_logs`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
