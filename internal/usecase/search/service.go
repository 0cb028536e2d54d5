package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/questsearch/internal/domain/search/request"
	"github.com/kailas-cloud/questsearch/internal/domain/search/result"
)

// Config holds per-mode query timeouts and optional metric collectors.
type Config struct {
	SemanticTimeout time.Duration // 0 = no timeout beyond the caller's
	KeywordTimeout  time.Duration
	// Duration has labels "mode" and "status"; Hits has label "mode". Both may be nil.
	Duration *prometheus.HistogramVec
	Hits     *prometheus.CounterVec
}

// Service answers keyword and semantic queries over the questions index.
type Service struct {
	repo  Repository
	embed Embedder
	cfg   Config
}

// New creates a search service.
func New(repo Repository, embed Embedder, cfg Config) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg}
}

// Search runs the request in its mode and returns at most req.Limit() hits in engine order.
// A blank query returns no hits without touching the engine.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	if req.IsBlank() {
		return []result.Result{}, nil
	}

	ctx, cancel := s.withTimeout(ctx, req.Mode())
	defer cancel()

	start := time.Now()

	var results []result.Result
	var err error
	switch req.Mode() {
	case mode.Semantic:
		results, err = s.searchSemantic(ctx, req)
	case mode.Keyword:
		results, err = s.searchKeyword(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unsupported search mode %q", domain.ErrInvalidQuery, req.Mode())
	}

	s.observe(req.Mode(), time.Since(start), err, len(results))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", domain.ErrSearchTimeout, err)
		}
		return nil, err
	}

	if len(results) > req.Limit() {
		results = results[:req.Limit()]
	}
	return results, nil
}

// searchSemantic embeds the query and runs a KNN search with k = limit.
func (s *Service) searchSemantic(ctx context.Context, req *request.Request) ([]result.Result, error) {
	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	results, err := s.repo.SearchKNN(ctx, embResult.Embedding, req.Limit())
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return results, nil
}

// searchKeyword runs a BM25 match query over titles.
func (s *Service) searchKeyword(ctx context.Context, req *request.Request) ([]result.Result, error) {
	results, err := s.repo.SearchKeyword(ctx, req.Query(), req.Limit())
	if err != nil {
		return nil, fmt.Errorf("search keyword: %w", err)
	}
	return results, nil
}

func (s *Service) withTimeout(ctx context.Context, m mode.Mode) (context.Context, context.CancelFunc) {
	timeout := s.cfg.KeywordTimeout
	if m == mode.Semantic {
		timeout = s.cfg.SemanticTimeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) observe(m mode.Mode, d time.Duration, err error, hits int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if s.cfg.Duration != nil {
		s.cfg.Duration.WithLabelValues(string(m), status).Observe(d.Seconds())
	}
	if s.cfg.Hits != nil && err == nil {
		s.cfg.Hits.WithLabelValues(string(m)).Add(float64(hits))
	}
}
