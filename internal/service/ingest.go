package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aura-labs/aura/internal/chunker"
	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/extract"
	"github.com/aura-labs/aura/internal/telemetry"
	"github.com/aura-labs/aura/internal/vectorindex"
	"golang.org/x/sync/singleflight"
)

// DocumentCache defines the repository interface for ingestion records
type DocumentCache interface {
	GetOrCreate(ctx context.Context, key domain.DocumentKey, documentURL string) (*domain.IngestionRecord, bool, error)
	Get(ctx context.Context, key domain.DocumentKey) (*domain.IngestionRecord, error)
	GetByURL(ctx context.Context, documentURL string) (*domain.IngestionRecord, error)
	Claim(ctx context.Context, key domain.DocumentKey, from domain.IngestionStatus) (bool, error)
	MarkReady(ctx context.Context, key domain.DocumentKey, chunkCount int) error
	MarkFailed(ctx context.Context, key domain.DocumentKey, reason string) error
}

// BatchEmbedder defines the interface for embedding chunk batches
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore defines the vector index interface used during ingestion
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, points []vectorindex.Point) error
	Count(ctx context.Context, namespace string) (int, error)
}

// DocumentArchiver stores raw document bytes for later inspection
type DocumentArchiver interface {
	ArchiveDocument(ctx context.Context, key string, contentType string, body []byte) error
}

// IngestionService downloads, chunks, embeds and indexes documents exactly
// once per content hash. Concurrent requests for the same URL share a single
// in-process ingestion; concurrent requests across processes are serialized
// by the document cache claim.
type IngestionService struct {
	cache        DocumentCache
	extractor    extract.Extractor
	embedder     BatchEmbedder
	index        VectorStore
	archiver     DocumentArchiver
	chunkCfg     chunker.Config
	pollInterval time.Duration
	group        singleflight.Group
}

// NewIngestionService creates a new IngestionService. The archiver may be nil
// when object storage is not configured.
func NewIngestionService(
	cache DocumentCache,
	extractor extract.Extractor,
	embedder BatchEmbedder,
	index VectorStore,
	archiver DocumentArchiver,
	chunkCfg chunker.Config,
) *IngestionService {
	return &IngestionService{
		cache:        cache,
		extractor:    extractor,
		embedder:     embedder,
		index:        index,
		archiver:     archiver,
		chunkCfg:     chunkCfg,
		pollInterval: 500 * time.Millisecond,
	}
}

// EnsureIngested returns a ready ingestion record for the document at the
// given URL, ingesting it first if needed. A URL whose latest record is
// already ready short-circuits without downloading the document again.
func (s *IngestionService) EnsureIngested(ctx context.Context, documentURL string) (*domain.IngestionRecord, error) {
	rec, err := s.cache.GetByURL(ctx, documentURL)
	if err == nil && rec.Status == domain.IngestionStatusReady {
		count, err := s.index.Count(ctx, rec.Namespace)
		if err == nil && count > 0 {
			return rec, nil
		}
		// Vectors are gone (evicted or lost); fall through and re-ingest.
	}

	return s.ensure(ctx, documentURL)
}

func (s *IngestionService) ensure(ctx context.Context, documentURL string) (*domain.IngestionRecord, error) {
	// Collapse concurrent in-process requests for the same URL into one
	// download and one ingestion.
	v, err, _ := s.group.Do(documentURL, func() (interface{}, error) {
		return s.ingest(ctx, documentURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.IngestionRecord), nil
}

func (s *IngestionService) ingest(ctx context.Context, documentURL string) (*domain.IngestionRecord, error) {
	doc, err := s.extractor.Extract(ctx, documentURL)
	if err != nil {
		return nil, err
	}

	key := domain.NewDocumentKey(doc.Content)

	rec, claimed, err := s.cache.GetOrCreate(ctx, key, documentURL)
	if err != nil {
		return nil, err
	}

	if !claimed {
		switch rec.Status {
		case domain.IngestionStatusReady:
			count, countErr := s.index.Count(ctx, rec.Namespace)
			if countErr == nil && count > 0 {
				return rec, nil
			}
			// Stale ready record; reclaim and rebuild the namespace.
			won, claimErr := s.cache.Claim(ctx, key, domain.IngestionStatusReady)
			if claimErr != nil {
				return nil, claimErr
			}
			if !won {
				return s.waitForIngestion(ctx, key)
			}
		case domain.IngestionStatusFailed:
			won, claimErr := s.cache.Claim(ctx, key, domain.IngestionStatusFailed)
			if claimErr != nil {
				return nil, claimErr
			}
			if !won {
				return s.waitForIngestion(ctx, key)
			}
		case domain.IngestionStatusPending:
			return s.waitForIngestion(ctx, key)
		}
	}

	if err := s.runIngestion(ctx, key, doc); err != nil {
		if markErr := s.cache.MarkFailed(ctx, key, err.Error()); markErr != nil {
			log.Printf("failed to mark ingestion failed for %s: %v", key, markErr)
		}
		return nil, err
	}

	return s.cache.Get(ctx, key)
}

func (s *IngestionService) runIngestion(ctx context.Context, key domain.DocumentKey, doc *extract.Document) error {
	ctx, span := telemetry.StartSpan(ctx, "ingest.document", telemetry.SpanAttributes{
		DocumentKey: string(key),
		Namespace:   key.Namespace(),
		Operation:   "ingest",
	})
	defer span.End()

	if s.archiver != nil {
		// Best effort: a missing archive never fails an ingestion.
		if err := s.archiver.ArchiveDocument(ctx, string(key), doc.ContentType, doc.Content); err != nil {
			log.Printf("failed to archive document %s: %v", key, err)
		}
	}

	chunks, err := chunker.Split(doc.Text, s.chunkCfg)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		err = fmt.Errorf("failed to embed chunks: %w", err)
		span.SetError(err)
		return err
	}

	points := make([]vectorindex.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorindex.Point{
			ChunkIndex: chunk.Index,
			ChunkText:  chunk.Text,
			Embedding:  embeddings[i],
		}
	}

	if err := s.index.Upsert(ctx, key.Namespace(), points); err != nil {
		span.SetError(err)
		return err
	}

	return s.cache.MarkReady(ctx, key, len(chunks))
}

// waitForIngestion polls the cache until another worker finishes the
// document, or the context expires.
func (s *IngestionService) waitForIngestion(ctx context.Context, key domain.DocumentKey) (*domain.IngestionRecord, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		rec, err := s.cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch rec.Status {
		case domain.IngestionStatusReady:
			return rec, nil
		case domain.IngestionStatusFailed:
			return nil, domain.NewDomainError(domain.ErrCodeIngestionFailed,
				fmt.Sprintf("document ingestion failed: %s", rec.FailReason))
		}

		select {
		case <-ctx.Done():
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable,
				"timed out waiting for document ingestion", ctx.Err())
		case <-ticker.C:
		}
	}
}
