package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/questsearch/internal/domain/search/request"
	"github.com/kailas-cloud/questsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockRepo struct {
	knnFn       func(ctx context.Context, vector []float32, k int) ([]result.Result, error)
	keywordFn   func(ctx context.Context, query string, limit int) ([]result.Result, error)
	knnCalled   bool
	keywordCall bool
}

func (m *mockRepo) SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Result, error) {
	m.knnCalled = true
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockRepo) SearchKeyword(ctx context.Context, query string, limit int) ([]result.Result, error) {
	m.keywordCall = true
	if m.keywordFn != nil {
		return m.keywordFn(ctx, query, limit)
	}
	return nil, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
	text   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func mustRequest(t *testing.T, q string, m mode.Mode, limit int) *request.Request {
	t.Helper()
	req, err := request.New(q, m, limit)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func manyResults(n int) []result.Result {
	out := make([]result.Result, n)
	for i := range out {
		out[i] = result.New("id", "title", float64(n-i))
	}
	return out
}

// --- Tests ---

func TestSearch_Semantic(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	var gotVec []float32
	var gotK int
	repo := &mockRepo{knnFn: func(_ context.Context, v []float32, k int) ([]result.Result, error) {
		gotVec, gotK = v, k
		return []result.Result{result.New("1", "How to sort a list", 0.92)}, nil
	}}
	svc := New(repo, emb, Config{})

	res, err := svc.Search(context.Background(), mustRequest(t, "  sorting lists ", mode.Semantic, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.text != "sorting lists" {
		t.Errorf("embedded %q, want trimmed query", emb.text)
	}
	if len(gotVec) != 2 || gotK != 10 {
		t.Errorf("SearchKNN(vec=%v, k=%d)", gotVec, gotK)
	}
	if repo.keywordCall {
		t.Error("semantic search must not run a keyword query")
	}
	if len(res) != 1 || res[0].Title() != "How to sort a list" {
		t.Errorf("unexpected results: %v", result.Titles(res))
	}
}

func TestSearch_Keyword(t *testing.T) {
	emb := &mockEmbedder{}
	var gotQuery string
	repo := &mockRepo{keywordFn: func(_ context.Context, q string, limit int) ([]result.Result, error) {
		gotQuery = q
		return []result.Result{result.New("2", "Python sort", 3.1)}, nil
	}}
	svc := New(repo, emb, Config{})

	res, err := svc.Search(context.Background(), mustRequest(t, "python sort", mode.Keyword, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.called {
		t.Error("keyword search must not embed the query")
	}
	if gotQuery != "python sort" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(res) != 1 {
		t.Errorf("expected 1 result, got %d", len(res))
	}
}

func TestSearch_BlankQuerySkipsEngine(t *testing.T) {
	for _, m := range []mode.Mode{mode.Semantic, mode.Keyword} {
		t.Run(string(m), func(t *testing.T) {
			emb := &mockEmbedder{}
			repo := &mockRepo{}
			svc := New(repo, emb, Config{})

			res, err := svc.Search(context.Background(), mustRequest(t, "   ", m, 10))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res == nil || len(res) != 0 {
				t.Errorf("expected empty non-nil result, got %#v", res)
			}
			if emb.called || repo.knnCalled || repo.keywordCall {
				t.Error("blank query must not reach embedder or engine")
			}
		})
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	repo := &mockRepo{keywordFn: func(context.Context, string, int) ([]result.Result, error) {
		return manyResults(25), nil
	}}
	svc := New(repo, &mockEmbedder{}, Config{})

	res, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Keyword, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 10 {
		t.Errorf("expected 10 results, got %d", len(res))
	}
}

func TestSearch_EmbeddingError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	repo := &mockRepo{}
	svc := New(repo, emb, Config{})

	_, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Semantic, 10))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if repo.knnCalled {
		t.Error("KNN must not run without a query vector")
	}
}

func TestSearch_RepoError(t *testing.T) {
	repo := &mockRepo{knnFn: func(context.Context, []float32, int) ([]result.Result, error) {
		return nil, domain.ErrIndexNotFound
	}}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, Config{})

	_, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Semantic, 10))
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearch_Timeout(t *testing.T) {
	repo := &mockRepo{keywordFn: func(ctx context.Context, _ string, _ int) ([]result.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := New(repo, &mockEmbedder{}, Config{KeywordTimeout: 10 * time.Millisecond})

	_, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Keyword, 10))
	if !errors.Is(err, domain.ErrSearchTimeout) {
		t.Fatalf("expected ErrSearchTimeout, got %v", err)
	}
}

func TestSearch_PerModeTimeout(t *testing.T) {
	var deadlines []time.Duration
	capture := func(ctx context.Context) {
		d, ok := ctx.Deadline()
		if !ok {
			t.Error("expected a deadline")
			return
		}
		deadlines = append(deadlines, time.Until(d))
	}
	repo := &mockRepo{
		knnFn: func(ctx context.Context, _ []float32, _ int) ([]result.Result, error) {
			capture(ctx)
			return nil, nil
		},
		keywordFn: func(ctx context.Context, _ string, _ int) ([]result.Result, error) {
			capture(ctx)
			return nil, nil
		},
	}
	svc := New(repo, &mockEmbedder{vec: []float32{1}}, Config{
		SemanticTimeout: 100 * time.Second,
		KeywordTimeout:  10 * time.Second,
	})

	if _, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Semantic, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Keyword, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(deadlines) != 2 {
		t.Fatalf("expected 2 deadlines, got %d", len(deadlines))
	}
	if deadlines[0] <= 10*time.Second {
		t.Errorf("semantic deadline %v, want ~100s", deadlines[0])
	}
	if deadlines[1] > 10*time.Second {
		t.Errorf("keyword deadline %v, want <= 10s", deadlines[1])
	}
}

func TestSearch_RecordsMetrics(t *testing.T) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "d"}, []string{"mode", "status"})
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "h"}, []string{"mode"})
	repo := &mockRepo{keywordFn: func(context.Context, string, int) ([]result.Result, error) {
		return manyResults(3), nil
	}}
	svc := New(repo, &mockEmbedder{}, Config{Duration: duration, Hits: hits})

	if _, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Keyword, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(hits.WithLabelValues("keyword")); got != 3 {
		t.Errorf("hits = %f, want 3", got)
	}
	if got := testutil.CollectAndCount(duration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}
