package service

import (
	"context"

	"github.com/aura-labs/aura/internal/domain"
)

// QuestionEmbedder defines the interface for embedding a single question
type QuestionEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// VectorQuerier defines the vector index interface used during retrieval
type VectorQuerier interface {
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]domain.RetrievedChunk, error)
}

// Retriever finds the document chunks most relevant to a question.
type Retriever struct {
	embedder     QuestionEmbedder
	index        VectorQuerier
	topK         int
	minRelevance float64
}

func NewRetriever(embedder QuestionEmbedder, index VectorQuerier, topK int, minRelevance float64) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder:     embedder,
		index:        index,
		topK:         topK,
		minRelevance: minRelevance,
	}
}

// Retrieve embeds the question and returns up to topK chunks from the
// document namespace, best match first. Chunks scoring below the relevance
// floor are dropped; an empty result is valid and means the document has
// nothing relevant to say.
func (r *Retriever) Retrieve(ctx context.Context, namespace, question string) ([]domain.RetrievedChunk, error) {
	vector, err := r.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := r.index.Query(ctx, namespace, vector, r.topK)
	if err != nil {
		return nil, err
	}

	filtered := chunks[:0]
	for _, chunk := range chunks {
		if chunk.Score >= r.minRelevance {
			filtered = append(filtered, chunk)
		}
	}
	return filtered, nil
}
