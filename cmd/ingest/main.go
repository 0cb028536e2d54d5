package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/questsearch/internal/config"
	"github.com/kailas-cloud/questsearch/internal/csvsource"
	dbRedis "github.com/kailas-cloud/questsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/questsearch/internal/logger"
	"github.com/kailas-cloud/questsearch/internal/metrics"
	questionrepo "github.com/kailas-cloud/questsearch/internal/repository/question"
	openaiEmb "github.com/kailas-cloud/questsearch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/questsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/questsearch/internal/usecase/ingest"
	"github.com/kailas-cloud/questsearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "ingest",
		Usage:     "Embed question titles from a CSV export and upsert them into the search index",
		ArgsUsage: "<max-rows>",
		Version:   version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "csv",
				Aliases: []string{"f"},
				Usage:   "Path to the questions CSV (default: ingest.csv_path from config)",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop the index and its documents before ingesting",
			},
			&cli.IntFlag{
				Name:  "metrics-port",
				Usage: "Serve Prometheus metrics of the run on this port (0 disables)",
			},
		},
		Action: ingestCommand,
	}
}

// parseMaxRows reads the positional row limit; 0 means no limit.
func parseMaxRows(c *cli.Context) (int, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one argument <max-rows>, got %d", c.NArg())
	}
	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, fmt.Errorf("max-rows must be an integer: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("max-rows must not be negative, got %d", n)
	}
	return n, nil
}

func ingestCommand(c *cli.Context) error {
	maxRows, err := parseMaxRows(c)
	if err != nil {
		return err
	}
	if port := c.Int("metrics-port"); port < 0 || port > 65535 {
		return fmt.Errorf("metrics-port must be between 0 and 65535, got %d", port)
	}

	// .env is optional
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	csvPath := c.String("csv")
	if csvPath == "" {
		csvPath = cfg.Ingest.CSVPath
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	healthuc.CheckConnection(ctx, store, logger)

	f, err := os.Open(filepath.Clean(csvPath))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader, err := csvsource.NewReader(f, cfg.Ingest.Encoding)
	if err != nil {
		return fmt.Errorf("create csv reader: %w", err)
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := questionrepo.New(store,
		questionrepo.Layout{KeyPrefix: cfg.Index.KeyPrefix, Name: cfg.Index.Name},
		cfg.Embedding.Dimensions,
		questionrepo.HNSWConfig{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct},
	)

	// nil interface, not a typed nil pointer, when metrics are off
	var recorder ingestuc.Recorder
	if port := c.Int("metrics-port"); port > 0 {
		m := metrics.NewIngest()
		recorder = m
		shutdown := serveMetrics(port, m.Handler(), logger)
		defer shutdown()
	}

	logger.Info("Starting ingestion",
		zap.String("version", version.String()),
		zap.String("csv", csvPath),
		zap.String("encoding", cfg.Ingest.Encoding),
		zap.Int("max_rows", maxRows),
		zap.Bool("reset", c.Bool("reset")),
		zap.String("model", cfg.Embedding.Model),
	)

	svc := ingestuc.New(repo, embedder, cfg.Embedding.Dimensions, recorder, logger)
	sum, err := svc.Run(ctx, reader, ingestuc.Options{
		MaxRows:       maxRows,
		Reset:         c.Bool("reset"),
		ProgressEvery: cfg.Ingest.ProgressEvery,
	})
	if err != nil {
		logger.Error("Ingestion aborted",
			zap.Int("rows", sum.Rows),
			zap.Int("indexed", sum.Indexed()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// serveMetrics exposes h at /metrics until the returned func is called.
func serveMetrics(port int, h http.Handler, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving ingestion metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
