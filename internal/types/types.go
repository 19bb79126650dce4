package types

import (
	"context"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// Core interfaces

// Embedder produces vectors for single texts or ordered batches. Batch
// results carry the original index so callers can re-zip dropped items.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) []EmbedResult
}

// EmbedResult is one successfully embedded batch item.
type EmbedResult struct {
	Index  int
	Text   string
	Vector []float32
}

// Completer generates a chat completion for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ModelManager checks, lists and downloads provider models.
type ModelManager interface {
	Inventory(ctx context.Context) ([]models.ModelInfo, error)
	EnsureModel(ctx context.Context, name string, confirm func(model string) bool, events chan<- models.DownloadStatus) error
}

// SessionStore is the slice of session persistence the retrieval pipeline
// needs. Both the legacy chat store and the notebook store satisfy it.
type SessionStore interface {
	Messages(sessionID string) []models.Message
	SaveMessages(sessionID string, messages []models.Message) error
	Documents(sessionID string) []models.Document
	AddDocument(sessionID string, doc *models.Document, file []byte) error
}
