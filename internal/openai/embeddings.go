package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingAPI defines the interface for batch embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient generates embeddings in batches with retry on transient
// failures. It is stateless beyond the outbound API calls.
type EmbeddingClient struct {
	api        EmbeddingAPI
	dimensions int
	batchSize  int
	backoff    BackoffConfig
}

type embeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newEmbeddingAdapter(client *openai.Client, model openai.EmbeddingModel) *embeddingAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &embeddingAdapter{client: client, model: model}
}

// CreateEmbeddings calls the OpenAI API for a single batch of inputs.
func (a *embeddingAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API documents no ordering guarantee; the index field is
	// authoritative.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// NewEmbeddingClient creates an EmbeddingClient with defaults.
func NewEmbeddingClient(apiKey string) *EmbeddingClient {
	return NewEmbeddingClientWithConfig(Config{APIKey: apiKey})
}

// NewEmbeddingClientWithConfig creates an EmbeddingClient with explicit configuration.
func NewEmbeddingClientWithConfig(cfg Config) *EmbeddingClient {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	bo := cfg.Backoff
	if bo.Initial == 0 && bo.MaxElapsed == 0 {
		bo = DefaultBackoffConfig()
	}
	return &EmbeddingClient{
		api:        newEmbeddingAdapter(openai.NewClient(cfg.APIKey), cfg.EmbeddingModel),
		dimensions: dimensions,
		batchSize:  batchSize,
		backoff:    bo,
	}
}

// EmbedBatch embeds texts, splitting the input into API-sized batches and
// reassembling outputs in input order. Rate limits and 5xx failures are
// retried with bounded exponential backoff; other failures surface
// immediately.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyInput
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var batch [][]float32
		err := withRetry(ctx, c.backoff, func() error {
			var callErr error
			batch, callErr = c.api.CreateEmbeddings(ctx, texts[start:end])
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}

		for _, embedding := range batch {
			if len(embedding) != c.dimensions {
				return nil, ErrWrongDimensions
			}
		}
		out = append(out, batch...)
	}

	return out, nil
}

// EmbedOne embeds a single text through the batch path.
func (c *EmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, errors.New("no embedding data returned")
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimensionality this client expects.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}
