package domain

import "errors"

var (
	// ErrInvalidQuestion signals an ingestion row that cannot become a question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidQuery signals a search request that fails validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchTimeout signals a query that exceeded its per-mode timeout.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrIndexNotFound signals that the questions index has not been created yet.
	ErrIndexNotFound = errors.New("index not found")
)
