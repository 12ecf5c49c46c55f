package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist or belongs
	// to another tenant. Callers map it to a 404-style outcome.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or out-of-range input.
	// Reported immediately to the caller; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file format or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates similarity search failed on both paths.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the LLM provider failed.
	// During streaming this becomes an in-band error event.
	ErrGeneration = errors.New("generation failed")
)
