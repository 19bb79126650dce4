package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/llm"
)

// fakeEmbeddingClient fails for any text listed in failOn.
type fakeEmbeddingClient struct {
	failOn map[string]bool
	calls  []string
}

func (f *fakeEmbeddingClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts...)
	if f.failOn[texts[0]] {
		return nil, fmt.Errorf("provider unreachable")
	}
	return [][]float32{{float32(len(texts[0])), 1}}, nil
}

func newFakeEmbedder(failOn ...string) (*llm.Embedder, *fakeEmbeddingClient) {
	client := &fakeEmbeddingClient{failOn: map[string]bool{}}
	for _, text := range failOn {
		client.failOn[text] = true
	}
	// High rate limit so tests do not sleep.
	return llm.NewEmbedderWithClient(llm.EmbedderConfig{RateLimit: 10000}, client), client
}

func TestEmbed_Success(t *testing.T) {
	embedder, _ := newFakeEmbedder()

	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, vector)
}

func TestEmbed_ProviderFailure(t *testing.T) {
	embedder, _ := newFakeEmbedder("broken")

	_, err := embedder.Embed(context.Background(), "broken")
	assert.True(t, errors.Is(err, models.ErrEmbeddingFailed))
}

func TestEmbedBatch_DropsFailedItems(t *testing.T) {
	texts := []string{"aa", "bb", "cc", "dd", "ee"}
	embedder, _ := newFakeEmbedder("cc")

	results := embedder.EmbedBatch(context.Background(), texts)

	require.Len(t, results, 4)
	indexes := make([]int, 0, len(results))
	for _, r := range results {
		indexes = append(indexes, r.Index)
	}
	assert.Equal(t, []int{0, 1, 3, 4}, indexes)
	assert.Equal(t, "dd", results[2].Text)
}

func TestEmbedBatch_Sequential(t *testing.T) {
	texts := []string{"one", "two", "three"}
	embedder, client := newFakeEmbedder()

	embedder.EmbedBatch(context.Background(), texts)

	// One provider call per item, in input order.
	assert.Equal(t, texts, client.calls)
}

func TestEmbedBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder, _ := newFakeEmbedder()
	results := embedder.EmbedBatch(ctx, []string{"a", "b"})

	assert.Empty(t, results)
}
