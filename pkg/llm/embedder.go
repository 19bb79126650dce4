package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/internal/types"
)

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	Model     string
	BaseURL   string  // Ollama server URL
	RateLimit float64 // embedding requests per second
}

// embeddingClient is the slice of the ollama client the embedder needs.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder obtains vectors from the local embedding provider.
type Embedder struct {
	config  EmbedderConfig
	client  embeddingClient
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return NewEmbedderWithClient(config, client), nil
}

// NewEmbedderWithClient wires an explicit provider client. Tests use this
// to substitute a fake.
func NewEmbedderWithClient(config EmbedderConfig, client embeddingClient) *Embedder {
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}
	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Embed returns the vector for a single text. Provider failures wrap
// models.ErrEmbeddingFailed.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", models.ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts one at a time. The loop is deliberately
// sequential: it bounds peak memory and keeps provider load predictable.
// A failed item is logged and omitted from the result; callers re-zip the
// survivors with their chunk texts via Index.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) []types.EmbedResult {
	results := make([]types.EmbedResult, 0, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("embedding failed for item %d: %v", i, err)
			continue
		}
		results = append(results, types.EmbedResult{
			Index:  i,
			Text:   text,
			Vector: vector,
		})
	}
	return results
}
