package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/questsearch/internal/db"
	"github.com/kailas-cloud/questsearch/internal/domain"
	domq "github.com/kailas-cloud/questsearch/internal/domain/question"
)

// store is the consumer interface for questions (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Exists(ctx context.Context, key string) (bool, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	SearchCount(ctx context.Context, index string) (int, error)
}

// HNSWConfig holds HNSW build parameters. Zero values keep engine defaults.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/ingest.Repository.
type Repo struct {
	store  store
	layout Layout
	dim    int
	hnsw   HNSWConfig
}

// New creates a question repository. dim is the embedding size the index is built for.
func New(s store, layout Layout, dim int, hnsw HNSWConfig) *Repo {
	return &Repo{store: s, layout: layout, dim: dim, hnsw: hnsw}
}

// EnsureIndex creates the questions index. An existing index is not an error;
// created reports whether this call built it.
func (r *Repo) EnsureIndex(ctx context.Context) (created bool, err error) {
	def, err := r.indexDefinition()
	if err != nil {
		return false, err
	}
	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Another ingester may have created it since the check.
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}

// DropIndex removes the questions index together with every stored question.
// A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	name := r.layout.IndexName()
	if err := r.store.DropIndex(ctx, name, true); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

// Upsert writes the question's title and vector under its key. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, q *domq.Question) (bool, error) {
	if len(q.Vector()) != r.dim {
		return false, fmt.Errorf("question %s: %w: got %d, want %d",
			q.ID(), domain.ErrVectorDimMismatch, len(q.Vector()), r.dim)
	}

	key := r.layout.Key(q.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	fields := map[string]string{
		TitleField:  q.Title(),
		VectorField: db.EncodeVector(q.Vector()),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}

	return !exists, nil
}

// Count returns the number of indexed questions.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.layout.IndexName())
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, domain.ErrIndexNotFound
		}
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

// indexDefinition builds the schema: title TEXT, title_vector HNSW COSINE.
func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	def, err := db.NewIndex(r.layout.IndexName()).
		Prefix(r.layout.DocPrefix()).
		Text(TitleField).
		VectorHNSW(VectorField, r.dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}
