//go:build integration

package vectorindex

import (
	"context"
	"testing"

	"github.com/aura-labs/aura/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVector(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestPgIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	index := NewPgIndex(pool)

	points := []Point{
		{ChunkIndex: 0, ChunkText: "first chunk", Embedding: unitVector(1536, 0)},
		{ChunkIndex: 1, ChunkText: "second chunk", Embedding: unitVector(1536, 1)},
		{ChunkIndex: 2, ChunkText: "third chunk", Embedding: unitVector(1536, 2)},
	}
	require.NoError(t, index.Upsert(ctx, "ns-a", points))

	results, err := index.Query(ctx, "ns-a", unitVector(1536, 1), 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "second chunk", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	// Scores are non-increasing
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestPgIndex_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	index := NewPgIndex(pool)

	point := []Point{{ChunkIndex: 0, ChunkText: "original", Embedding: unitVector(1536, 0)}}
	require.NoError(t, index.Upsert(ctx, "ns-a", point))

	point[0].ChunkText = "replaced"
	require.NoError(t, index.Upsert(ctx, "ns-a", point))

	count, err := index.Count(ctx, "ns-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := index.Query(ctx, "ns-a", unitVector(1536, 0), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "replaced", results[0].Text)
}

func TestPgIndex_UnknownNamespaceIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	index := NewPgIndex(pool)

	results, err := index.Query(ctx, "never-ingested", unitVector(1536, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPgIndex_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	index := NewPgIndex(pool)

	require.NoError(t, index.Upsert(ctx, "ns-a", []Point{
		{ChunkIndex: 0, ChunkText: "belongs to a", Embedding: unitVector(1536, 0)},
	}))
	require.NoError(t, index.Upsert(ctx, "ns-b", []Point{
		{ChunkIndex: 0, ChunkText: "belongs to b", Embedding: unitVector(1536, 0)},
	}))

	results, err := index.Query(ctx, "ns-a", unitVector(1536, 0), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "belongs to a", results[0].Text)
}

func TestPgIndex_DeleteNamespaceAndStats(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	index := NewPgIndex(pool)

	require.NoError(t, index.Upsert(ctx, "ns-a", []Point{
		{ChunkIndex: 0, ChunkText: "a0", Embedding: unitVector(1536, 0)},
		{ChunkIndex: 1, ChunkText: "a1", Embedding: unitVector(1536, 1)},
	}))
	require.NoError(t, index.Upsert(ctx, "ns-b", []Point{
		{ChunkIndex: 0, ChunkText: "b0", Embedding: unitVector(1536, 2)},
	}))

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalVectors)
	assert.Equal(t, int64(2), stats.Namespaces)

	require.NoError(t, index.DeleteNamespace(ctx, "ns-a"))

	count, err := index.Count(ctx, "ns-a")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = index.Count(ctx, "ns-b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
