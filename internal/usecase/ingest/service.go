package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/questsearch/internal/csvsource"
	domq "github.com/kailas-cloud/questsearch/internal/domain/question"
	"github.com/kailas-cloud/questsearch/internal/metrics"
)

// Options tune one ingestion run.
type Options struct {
	MaxRows       int  // stop after this many rows; 0 = no limit
	Reset         bool // drop the index and its documents first
	ProgressEvery int  // log progress every N rows; 0 disables
}

// Summary reports what a run did.
type Summary struct {
	Rows    int // data rows read, malformed ones included
	Created int
	Updated int
	Failed  int // embedding or write failed
	Skipped int // malformed or invalid row
	Elapsed time.Duration
}

// Indexed returns the number of rows written successfully.
func (s Summary) Indexed() int { return s.Created + s.Updated }

// Service embeds question titles and upserts them one row at a time.
type Service struct {
	repo     Repository
	embed    Embedder
	dim      int
	recorder Recorder
	logger   *zap.Logger
}

// New creates an ingestion service. dim is the expected embedding size; recorder may be nil.
func New(repo Repository, embed Embedder, dim int, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, dim: dim, recorder: recorder, logger: logger}
}

// Run prepares the index and ingests rows from src sequentially.
// Per-row embedding or write failures are logged and counted; they never stop the loop.
// A stream error that leaves src unreadable, or ctx cancellation, ends the run with an error.
func (s *Service) Run(ctx context.Context, src RowSource, opts Options) (Summary, error) {
	start := time.Now()
	var sum Summary

	if opts.Reset {
		if err := s.repo.DropIndex(ctx); err != nil {
			return sum, fmt.Errorf("reset index: %w", err)
		}
		s.logger.Info("Index dropped")
	}

	created, err := s.repo.EnsureIndex(ctx)
	if err != nil {
		return sum, fmt.Errorf("ensure index: %w", err)
	}
	if created {
		s.logger.Info("Index created")
	} else {
		s.logger.Info("Index already exists")
	}

	for opts.MaxRows <= 0 || sum.Rows < opts.MaxRows {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("ingestion interrupted: %w", err)
		}

		row, err := src.Next()
		switch {
		case errors.Is(err, io.EOF):
			sum.Elapsed = time.Since(start)
			s.logSummary(sum)
			return sum, nil
		case errors.Is(err, csvsource.ErrMalformedRow):
			sum.Rows++
			sum.Skipped++
			s.record(metrics.RowSkipped)
			s.logger.Warn("Skipping malformed row", zap.Error(err))
		case err != nil:
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("read csv: %w", err)
		default:
			sum.Rows++
			s.ingestRow(ctx, row, &sum)
		}

		if opts.ProgressEvery > 0 && sum.Rows%opts.ProgressEvery == 0 {
			s.logger.Info("Ingestion progress",
				zap.Int("rows", sum.Rows),
				zap.Int("indexed", sum.Indexed()),
				zap.Int("failed", sum.Failed),
				zap.Int("skipped", sum.Skipped),
			)
		}
	}

	sum.Elapsed = time.Since(start)
	s.logSummary(sum)
	return sum, nil
}

func (s *Service) logSummary(sum Summary) {
	s.logger.Info("Completed indexing",
		zap.Int("rows", sum.Rows),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Float64("elapsed_sec", sum.Elapsed.Seconds()),
	)
}

func (s *Service) ingestRow(ctx context.Context, row csvsource.Row, sum *Summary) {
	q, err := domq.New(row.ID, row.Title)
	if err != nil {
		sum.Skipped++
		s.record(metrics.RowSkipped)
		s.logger.Warn("Skipping invalid row", zap.Int("line", row.Line), zap.Error(err))
		return
	}

	embedStart := time.Now()
	emb, err := s.embed.Embed(ctx, q.Title())
	if s.recorder != nil {
		s.recorder.ObserveEmbed(time.Since(embedStart))
	}
	if err != nil {
		s.fail(sum, q.ID(), "embed title", err)
		return
	}

	withVec, err := q.WithVector(emb.Embedding, s.dim)
	if err != nil {
		s.fail(sum, q.ID(), "embed title", err)
		return
	}

	writeStart := time.Now()
	isNew, err := s.repo.Upsert(ctx, &withVec)
	if s.recorder != nil {
		s.recorder.ObserveWrite(time.Since(writeStart))
	}
	if err != nil {
		s.fail(sum, q.ID(), "upsert question", err)
		return
	}

	if isNew {
		sum.Created++
	} else {
		sum.Updated++
	}
	s.record(metrics.RowIndexed)
}

func (s *Service) fail(sum *Summary, id, step string, err error) {
	sum.Failed++
	s.record(metrics.RowFailed)
	s.logger.Warn("Failed to ingest question", zap.String("id", id), zap.String("step", step), zap.Error(err))
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.Row(outcome)
	}
}
