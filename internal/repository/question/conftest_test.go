package question

import (
	"context"
	"testing"

	"github.com/kailas-cloud/questsearch/internal/db"
	domq "github.com/kailas-cloud/questsearch/internal/domain/question"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string, deleteDocs bool) error
	searchCountFn func(ctx context.Context, index string) (int, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) SearchCount(ctx context.Context, index string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index)
	}
	return 0, nil
}

var testLayout = Layout{KeyPrefix: "qs:", Name: "questions"}

func newTestRepo(ms *mockStore, dim int) *Repo {
	return New(ms, testLayout, dim, HNSWConfig{M: 16, EFConstruct: 200})
}

// newQuestion builds an embedded question whose dimension is len(vec).
func newQuestion(t *testing.T, id, title string, vec []float32) domq.Question {
	t.Helper()
	q, err := domq.New(id, title)
	if err != nil {
		t.Fatalf("new question: %v", err)
	}
	q, err = q.WithVector(vec, len(vec))
	if err != nil {
		t.Fatalf("attach vector: %v", err)
	}
	return q
}
