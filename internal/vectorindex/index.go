// Package vectorindex stores chunk embeddings in Postgres with pgvector and
// serves top-k cosine similarity queries scoped to a document namespace.
package vectorindex

import (
	"context"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Point is a single chunk vector to upsert.
type Point struct {
	ChunkIndex int
	ChunkText  string
	Embedding  []float32
}

// Stats summarizes the index contents.
type Stats struct {
	TotalVectors int64 `json:"total_vectors"`
	Namespaces   int64 `json:"namespaces"`
}

// PgIndex implements namespaced vector storage on a pgvector table.
type PgIndex struct {
	pool *pgxpool.Pool
}

func NewPgIndex(pool *pgxpool.Pool) *PgIndex {
	return &PgIndex{pool: pool}
}

// Upsert writes points into a namespace. Upserting the same (namespace,
// chunk index) twice overwrites, never duplicates.
func (i *PgIndex) Upsert(ctx context.Context, namespace string, points []Point) error {
	for _, p := range points {
		_, err := i.pool.Exec(ctx,
			`INSERT INTO chunk_vectors (namespace, chunk_index, chunk_text, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (namespace, chunk_index)
			 DO UPDATE SET chunk_text = EXCLUDED.chunk_text, embedding = EXCLUDED.embedding`,
			namespace,
			p.ChunkIndex,
			p.ChunkText,
			pgvector.NewVector(p.Embedding),
		)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable, "vector upsert failed", err)
		}
	}
	return nil
}

// Query returns the k nearest chunks in the namespace by cosine similarity,
// descending. Scores are clamped to [0,1]. An unknown namespace yields an
// empty result, not an error, since the document may not be ingested yet.
func (i *PgIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 5
	}

	rows, err := i.pool.Query(ctx,
		`SELECT chunk_text, GREATEST(0.0, LEAST(1.0, 1.0 - (embedding <=> $1))) AS score
		 FROM chunk_vectors
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector),
		namespace,
		k,
	)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable, "vector query failed", err)
	}
	defer rows.Close()

	results := make([]domain.RetrievedChunk, 0, k)
	for rows.Next() {
		var chunk domain.RetrievedChunk
		if err := rows.Scan(&chunk.Text, &chunk.Score); err != nil {
			return nil, err
		}
		results = append(results, chunk)
	}

	return results, rows.Err()
}

// Count returns the number of vectors stored in a namespace.
func (i *PgIndex) Count(ctx context.Context, namespace string) (int, error) {
	var count int
	err := i.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunk_vectors WHERE namespace = $1`,
		namespace,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteNamespace removes every vector in a namespace.
func (i *PgIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := i.pool.Exec(ctx, `DELETE FROM chunk_vectors WHERE namespace = $1`, namespace)
	return err
}

// Stats reports index-wide totals.
func (i *PgIndex) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := i.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT namespace) FROM chunk_vectors`,
	).Scan(&stats.TotalVectors, &stats.Namespaces)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
