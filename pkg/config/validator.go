package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.EmbedModel == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.embed_model",
			Message: "embedding model name is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Chunker config
	if c.Chunker.WindowSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.window_size",
			Message: "window_size must be positive",
		})
	}

	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.WindowSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.overlap",
			Message: "overlap must be non-negative and less than window_size",
		})
	}

	// Validate RAG config
	for field, k := range map[string]int{
		"rag.summary_top_k": c.RAG.SummaryTopK,
		"rag.answer_top_k":  c.RAG.AnswerTopK,
		"rag.search_top_k":  c.RAG.SearchTopK,
	} {
		if k < 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "top-K must be positive",
			})
		}
	}

	if c.RAG.EmbedRateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rag.embed_rate_limit",
			Message: "embed_rate_limit must be positive",
		})
	}

	// Validate Storage config
	if c.Storage.DataDir == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.data_dir",
			Message: "data directory is required",
		})
	}

	// Validate Models config
	if c.Models.Binary == "" {
		errors = append(errors, ValidationError{
			Field:   "models.binary",
			Message: "model tool binary is required",
		})
	}

	return errors
}
