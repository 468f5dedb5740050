package openai

import (
	"context"
	"errors"

	"github.com/aura-labs/aura/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	generationTemperature = 0.1
	generationMaxTokens   = 1024
)

// GenerationAPI defines the interface for chat-based text generation
type GenerationAPI interface {
	CreateCompletion(ctx context.Context, prompt string) (string, error)
}

// GenerationClient produces answer text from prompts, with the same retry
// policy as the embedding client.
type GenerationClient struct {
	api     GenerationAPI
	backoff BackoffConfig
}

type generationAdapter struct {
	client *openai.Client
	model  string
}

func newGenerationAdapter(client *openai.Client, model string) *generationAdapter {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &generationAdapter{client: client, model: model}
}

func (a *generationAdapter) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", domain.ErrContentFiltered
	}

	return choice.Message.Content, nil
}

// NewGenerationClient creates a GenerationClient with defaults.
func NewGenerationClient(apiKey string) *GenerationClient {
	return NewGenerationClientWithConfig(Config{APIKey: apiKey})
}

// NewGenerationClientWithConfig creates a GenerationClient with explicit configuration.
func NewGenerationClientWithConfig(cfg Config) *GenerationClient {
	bo := cfg.Backoff
	if bo.Initial == 0 && bo.MaxElapsed == 0 {
		bo = DefaultBackoffConfig()
	}
	return &GenerationClient{
		api:     newGenerationAdapter(openai.NewClient(cfg.APIKey), cfg.GenerationModel),
		backoff: bo,
	}
}

// Generate runs the prompt through the model, retrying transient failures.
// Content-filter rejections are fatal and surface as ErrContentFiltered.
func (c *GenerationClient) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyInput
	}

	var out string
	err := withRetry(ctx, c.backoff, func() error {
		var callErr error
		out, callErr = c.api.CreateCompletion(ctx, prompt)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
