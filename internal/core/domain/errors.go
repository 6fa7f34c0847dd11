package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Documents owned by someone else are reported as not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAccessDenied indicates the caller has no verified identity
	// or may not act on the requested resource.
	ErrAccessDenied = errors.New("access denied")

	// ErrUpstream indicates an embedding or generation provider failed.
	// Callers may retry the whole request.
	ErrUpstream = errors.New("upstream service error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// Refinements of the base errors. Each matches its parent with errors.Is.
var (
	// ErrUnsupportedType indicates an upload that is not a PDF.
	ErrUnsupportedType = fmt.Errorf("unsupported content type: %w", ErrInvalidInput)

	// ErrEmptyInput indicates no text survived filtering.
	ErrEmptyInput = fmt.Errorf("no usable text: %w", ErrInvalidInput)

	// ErrEmptyIndex indicates a document index with zero vectors.
	ErrEmptyIndex = fmt.Errorf("index has no vectors: %w", ErrInvalidInput)

	// ErrNotIndexed indicates a document record whose index is not ready.
	ErrNotIndexed = fmt.Errorf("document not indexed: %w", ErrNotFound)

	// ErrEmbedding indicates an embedding call failed.
	ErrEmbedding = fmt.Errorf("embedding failed: %w", ErrUpstream)

	// ErrGeneration indicates a generation or verification call failed.
	ErrGeneration = fmt.Errorf("generation failed: %w", ErrUpstream)
)
