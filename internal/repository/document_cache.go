package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentCacheRepository persists ingestion records in Postgres. The
// INSERT ... ON CONFLICT DO NOTHING claim is the cross-process guarantee
// that at most one caller ingests a given document key.
type DocumentCacheRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentCacheRepository(pool *pgxpool.Pool) *DocumentCacheRepository {
	return &DocumentCacheRepository{pool: pool}
}

const ingestionRecordColumns = `document_key, document_url, status, chunk_count, namespace, fail_reason, created_at, updated_at`

func scanIngestionRecord(row pgx.Row) (*domain.IngestionRecord, error) {
	var rec domain.IngestionRecord
	var key, status string
	err := row.Scan(&key, &rec.DocumentURL, &status, &rec.ChunkCount, &rec.Namespace, &rec.FailReason, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.DocumentKey = domain.DocumentKey(key)
	rec.Status = domain.IngestionStatus(status)
	return &rec, nil
}

// GetOrCreate atomically claims a document key. The second return value is
// true when this caller inserted the pending record and therefore owns the
// ingestion run; otherwise the existing record is returned.
func (r *DocumentCacheRepository) GetOrCreate(ctx context.Context, key domain.DocumentKey, documentURL string) (*domain.IngestionRecord, bool, error) {
	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO document_cache (document_key, document_url, status, chunk_count, namespace, fail_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, 0, $4, '', $5, $5)
		 ON CONFLICT (document_key) DO NOTHING
		 RETURNING `+ingestionRecordColumns,
		string(key), documentURL, string(domain.IngestionStatusPending), key.Namespace(), now,
	)

	rec, err := scanIngestionRecord(row)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	rec, err = r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// Get returns the ingestion record for a document key.
func (r *DocumentCacheRepository) Get(ctx context.Context, key domain.DocumentKey) (*domain.IngestionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ingestionRecordColumns+` FROM document_cache WHERE document_key = $1`,
		string(key),
	)
	rec, err := scanIngestionRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return rec, err
}

// GetByURL returns the most recent ingestion record for a document URL, so
// repeated requests for a known URL can skip the download entirely.
func (r *DocumentCacheRepository) GetByURL(ctx context.Context, documentURL string) (*domain.IngestionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ingestionRecordColumns+`
		 FROM document_cache
		 WHERE document_url = $1
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		documentURL,
	)
	rec, err := scanIngestionRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return rec, err
}

// Claim transitions a record from the given status back to pending and
// reports whether this caller won the transition. Used to retry failed
// ingestions and to re-ingest a ready document whose namespace went empty.
func (r *DocumentCacheRepository) Claim(ctx context.Context, key domain.DocumentKey, from domain.IngestionStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_cache
		 SET status = $1, fail_reason = '', updated_at = $2
		 WHERE document_key = $3 AND status = $4`,
		string(domain.IngestionStatusPending), time.Now().UTC(), string(key), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkReady records a completed ingestion. Only a pending record can become
// ready.
func (r *DocumentCacheRepository) MarkReady(ctx context.Context, key domain.DocumentKey, chunkCount int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_cache
		 SET status = $1, chunk_count = $2, fail_reason = '', updated_at = $3
		 WHERE document_key = $4 AND status = $5`,
		string(domain.IngestionStatusReady), chunkCount, time.Now().UTC(), string(key), string(domain.IngestionStatusPending),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkFailed records an unrecoverable ingestion error so a later request
// can retry.
func (r *DocumentCacheRepository) MarkFailed(ctx context.Context, key domain.DocumentKey, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_cache
		 SET status = $1, fail_reason = $2, updated_at = $3
		 WHERE document_key = $4 AND status = $5`,
		string(domain.IngestionStatusFailed), reason, time.Now().UTC(), string(key), string(domain.IngestionStatusPending),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DeleteExpired removes records older than the cutoff and returns their
// namespaces so callers can drop the vectors as well.
func (r *DocumentCacheRepository) DeleteExpired(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM document_cache WHERE updated_at < $1 RETURNING namespace`,
		olderThan,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// CountByStatus returns how many cached documents are in each status.
func (r *DocumentCacheRepository) CountByStatus(ctx context.Context) (map[domain.IngestionStatus]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM document_cache GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.IngestionStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.IngestionStatus(status)] = count
	}
	return counts, rows.Err()
}
