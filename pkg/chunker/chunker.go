package chunker

import (
	"fmt"
	"strings"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

type ChunkerConfig struct {
	WindowSize int // words per chunk
	Overlap    int // words shared between consecutive chunks
}

type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) (Chunker, error) {
	if config.WindowSize == 0 {
		config.WindowSize = 300
	}
	if config.WindowSize < 0 {
		return Chunker{}, fmt.Errorf("%w: window size must be positive", models.ErrInvalidArgument)
	}
	if config.Overlap < 0 || config.Overlap >= config.WindowSize {
		return Chunker{}, fmt.Errorf("%w: overlap must be in [0, window size)", models.ErrInvalidArgument)
	}
	return Chunker{config: config}, nil
}

// Chunk splits text into overlapping word windows. The split is on any
// whitespace, words inside a chunk are re-joined with single spaces, and
// the last chunk may hold fewer than WindowSize words. Identical input
// always yields identical output.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.config.WindowSize - c.config.Overlap
	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + c.config.WindowSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Chunk is the one-shot form used where no Chunker is kept around.
func Chunk(text string, windowSize, overlap int) ([]string, error) {
	c, err := NewWithConfig(ChunkerConfig{WindowSize: windowSize, Overlap: overlap})
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}
