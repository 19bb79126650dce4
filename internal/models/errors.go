package models

import "errors"

// Sentinel errors shared across the engine. Callers match with errors.Is.
var (
	// ErrInvalidArgument is returned for malformed parameters, such as a
	// chunk overlap that is not smaller than the window size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmbeddingFailed is returned when the embedding provider rejects
	// or fails a single embedding request.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrModelUnavailable is returned when a required model is not present
	// locally and could not be downloaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrNotFound is returned for lookups of sessions or documents that
	// do not exist, on the paths where an empty default is not acceptable.
	ErrNotFound = errors.New("not found")
)
