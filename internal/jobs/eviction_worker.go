package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// EvictionCache defines the cache operations needed by the eviction sweep
type EvictionCache interface {
	// DeleteExpired removes records last touched before the cutoff and
	// returns their vector namespaces
	DeleteExpired(ctx context.Context, olderThan time.Time) ([]string, error)
}

// NamespaceDeleter removes every vector in a namespace
type NamespaceDeleter interface {
	DeleteNamespace(ctx context.Context, namespace string) error
}

// EvictionWorker expires cached documents past their TTL and drops their
// vectors. A TTL of zero disables eviction entirely.
type EvictionWorker struct {
	cache EvictionCache
	index NamespaceDeleter
	ttl   time.Duration
}

// NewEvictionWorker creates a new EvictionWorker instance
func NewEvictionWorker(cache EvictionCache, index NamespaceDeleter, ttl time.Duration) *EvictionWorker {
	return &EvictionWorker{
		cache: cache,
		index: index,
		ttl:   ttl,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EvictionWorker) ProcessJobs(ctx context.Context) error {
	if w.ttl <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-w.ttl)
	namespaces, err := w.cache.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	if len(namespaces) == 0 {
		return nil
	}

	log.Printf("Evicting %d expired documents", len(namespaces))

	for _, namespace := range namespaces {
		// The cache row is already gone; an orphaned namespace is
		// overwritten if the document ever comes back.
		if err := w.index.DeleteNamespace(ctx, namespace); err != nil {
			log.Printf("Error deleting namespace %s: %v", namespace, err)
		}
	}

	return nil
}
