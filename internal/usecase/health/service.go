package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	Checks    map[string]CheckResult
	Questions int // indexed question count, when the index check ran and passed
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	index     QuestionCounter
}

// New creates a Service. embedding and index can be nil.
func New(db DBPinger, embedding EmbeddingChecker, index QuestionCounter) *Service {
	return &Service{db: db, embedding: embedding, index: index}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	var report Report

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.index != nil {
		if n, err := s.index.Count(ctx); err != nil {
			checks["index"] = CheckError
		} else {
			checks["index"] = CheckOK
			report.Questions = n
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	switch {
	case failed == 0:
		report.Status = Healthy
	case failed == len(checks):
		report.Status = Unhealthy
	default:
		report.Status = Degraded
	}
	report.Checks = checks

	return report
}

// CheckConnection performs the one-shot startup liveness check. It never retries:
// a failure is logged as a warning and startup carries on.
func CheckConnection(ctx context.Context, db DBPinger, logger *zap.Logger) bool {
	if err := db.Ping(ctx); err != nil {
		logger.Warn("Could not connect to database", zap.Error(err))
		return false
	}
	logger.Info("Connected to database")
	return true
}
