package ingest

import (
	"context"
	"time"

	"github.com/kailas-cloud/questsearch/internal/csvsource"
	"github.com/kailas-cloud/questsearch/internal/domain"
	domq "github.com/kailas-cloud/questsearch/internal/domain/question"
)

// Repository defines the storage contract for ingestion.
type Repository interface {
	EnsureIndex(ctx context.Context) (bool, error)
	DropIndex(ctx context.Context) error
	Upsert(ctx context.Context, q *domq.Question) (bool, error)
}

// Embedder vectorizes titles. The query server must use the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// RowSource yields CSV rows; io.EOF ends the stream.
type RowSource interface {
	Next() (csvsource.Row, error)
}

// Recorder receives per-row metrics. Implemented by metrics.Ingest.
type Recorder interface {
	Row(outcome string)
	ObserveEmbed(d time.Duration)
	ObserveWrite(d time.Duration)
}
