package search

import (
	"context"

	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Result, error)
	SearchKeyword(ctx context.Context, query string, limit int) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings. It must be the one used at ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
