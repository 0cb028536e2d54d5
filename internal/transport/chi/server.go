package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/questsearch/internal/domain/search/request"
	"github.com/kailas-cloud/questsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/questsearch/internal/logger"
	healthuc "github.com/kailas-cloud/questsearch/internal/usecase/health"
)

// maxBodyBytes caps a query request body.
const maxBodyBytes = 64 << 10

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeTimeout                ErrorCode = "timeout"
	CodeIndexNotFound          ErrorCode = "index_not_found"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeInternalError          ErrorCode = "internal_error"
)

// Searcher runs a validated query. Implemented by usecase/search.Service.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// HealthReporter aggregates component checks. Implemented by usecase/health.Service.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

type queryRequest struct {
	Query *string `json:"query"`
}

type searchResponse struct {
	Result    []string `json:"result"`
	TimeTaken float64  `json:"time_taken"`
	Keywords  bool     `json:"keywords,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type healthResponse struct {
	Status    healthuc.Status                 `json:"status"`
	Checks    map[string]healthuc.CheckResult `json:"checks"`
	Questions *int                            `json:"questions,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers of the query server.
type Server struct {
	search        Searcher
	health        HealthReporter
	pageSize      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the query server handlers. pageSize bounds every result list.
func NewServer(search Searcher, health HealthReporter, pageSize int, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		health:   health,
		pageSize: pageSize,
		logger:   logger,
	}
	// Timeout first: a deadline hit inside the embedder also carries ErrEmbeddingProviderError.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrSearchTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusServiceUnavailable, CodeIndexNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, CodeVectorDimMismatch),
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Server is running.."})
}

// Semantic handles POST /semantic.
func (s *Server) Semantic(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, mode.Semantic)
}

// Keywords handles POST /keywords.
func (s *Server) Keywords(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, mode.Keyword)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, m mode.Mode) {
	start := time.Now()

	query, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	req, err := request.New(query, m, s.pageSize)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Result:    result.Titles(results),
		TimeTaken: time.Since(start).Seconds(),
		Keywords:  m == mode.Keyword,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	resp := healthResponse{Status: report.Status, Checks: report.Checks}
	if report.Checks["index"] == healthuc.CheckOK {
		n := report.Questions
		resp.Questions = &n
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
		s.logger.Warn("Health check failed",
			zap.String("status", string(report.Status)),
			zap.Any("checks", report.Checks),
		)
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeQuery reads {"query": "..."}; the field must be present.
func decodeQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}
	if body.Query == nil {
		return "", errors.New("query is required")
	}
	return *body.Query, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrSearchTimeout,
		domain.ErrIndexNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
