package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// QuestionCounter reports how many questions the index holds.
type QuestionCounter interface {
	Count(ctx context.Context) (int, error)
}
