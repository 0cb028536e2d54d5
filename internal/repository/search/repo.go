package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/questsearch/internal/db"
	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/result"
	"github.com/kailas-cloud/questsearch/internal/repository/question"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository over the questions index.
type Repo struct {
	store  store
	layout question.Layout
}

// New creates a search repository.
func New(s store, layout question.Layout) *Repo {
	return &Repo{store: s, layout: layout}
}

// SearchKNN returns the k questions whose title vectors are nearest to vector,
// ordered by engine score.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    r.layout.IndexName(),
		VectorField:  question.VectorField,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{question.TitleField},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", mapStoreError(err))
	}

	return r.toResults(sr), nil
}

// SearchKeyword runs a match query over titles: any query term may match and
// the engine ranks hits by BM25.
func (r *Repo) SearchKeyword(ctx context.Context, query string, limit int) ([]result.Result, error) {
	q := &db.TextQuery{
		IndexName:    r.layout.IndexName(),
		Field:        question.TitleField,
		Query:        query,
		MatchAny:     true,
		Limit:        limit,
		ReturnFields: []string{question.TitleField},
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search keyword: %w", mapStoreError(err))
	}

	return r.toResults(sr), nil
}

// toResults reshapes engine hits, keeping engine order.
func (r *Repo) toResults(sr *db.SearchResult) []result.Result {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := r.layout.DocPrefix()
	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		results = append(results, result.New(id, entry.Fields[question.TitleField], entry.Score))
	}
	return results
}

func mapStoreError(err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrIndexNotFound, err)
	}
	return err
}
