package openai

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultGenerationModel is the chat model used for answer synthesis
	DefaultGenerationModel = openai.GPT4oMini
	// DefaultBatchSize is the maximum number of inputs per embeddings request
	DefaultBatchSize = 100
)

var (
	// ErrEmptyInput is returned when no texts are supplied
	ErrEmptyInput = errors.New("input texts cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	GenerationModel     string
	BatchSize           int
	Backoff             BackoffConfig
}

// BackoffConfig bounds the retry policy for transient failures.
type BackoffConfig struct {
	Initial    time.Duration
	MaxElapsed time.Duration
}

// DefaultBackoffConfig retries for up to 15 seconds starting at 500ms.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    500 * time.Millisecond,
		MaxElapsed: 15 * time.Second,
	}
}

func newBackoff(ctx context.Context, cfg BackoffConfig) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	if cfg.Initial > 0 {
		policy.InitialInterval = cfg.Initial
	}
	if cfg.MaxElapsed > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsed
	}
	policy.Reset()
	return backoff.WithContext(policy, ctx)
}

// classifyError maps OpenAI API failures onto the domain error taxonomy so
// callers can distinguish retryable from fatal failures.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
				return domain.NewDomainErrorWithCause(domain.ErrCodeQuotaExceeded, "openai quota exceeded", err)
			}
			return domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, "openai rate limited", err)
		case apiErr.HTTPStatusCode >= 500:
			return domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable, "openai unavailable", err)
		default:
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "openai rejected request", err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 500 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable, "openai unavailable", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewDomainErrorWithCause(domain.ErrCodeServiceUnavailable, "openai request timed out", err)
	}

	return err
}

// withRetry runs op, retrying transient failures with bounded exponential
// backoff. Fatal errors surface immediately.
func withRetry(ctx context.Context, cfg BackoffConfig, op func() error) error {
	policy := newBackoff(ctx, cfg)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		classified := classifyError(err)
		if domain.IsTransient(classified) {
			return classified
		}
		return backoff.Permanent(classified)
	}, policy)
}

// APIKeyFromEnv reads the OpenAI API key from the environment.
func APIKeyFromEnv() (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", ErrNoAPIKey
	}
	return apiKey, nil
}
