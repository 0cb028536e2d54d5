package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/questsearch/internal/config"
	dbRedis "github.com/kailas-cloud/questsearch/internal/db/redis"
	"github.com/kailas-cloud/questsearch/internal/domain"
	logpkg "github.com/kailas-cloud/questsearch/internal/logger"
	"github.com/kailas-cloud/questsearch/internal/metrics"
	"github.com/kailas-cloud/questsearch/internal/repository/embcache"
	questionrepo "github.com/kailas-cloud/questsearch/internal/repository/question"
	searchrepo "github.com/kailas-cloud/questsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/questsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/questsearch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/questsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/questsearch/internal/usecase/search"
	"github.com/kailas-cloud/questsearch/internal/version"
)

const startupPingTimeout = 5 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting questsearch server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	handler, cleanup, err := newHandler(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to wire server", zap.Error(err))
	}
	defer cleanup()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newHandler wires storage, embeddings and search behind the HTTP router. An unreachable
// database is logged and tolerated: the store dials lazily and requests fail until it is up.
// cleanup releases the database client.
func newHandler(cfg config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create database store: %w", err)
	}

	// One liveness check; the server starts either way.
	pingCtx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	healthuc.CheckConnection(pingCtx, store, logger)
	cancel()

	// Register metrics explicitly; NewRouter registers the HTTP ones.
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = base
	if cfg.Embedding.CacheTTLSec > 0 {
		embedder = embcache.New(base, store, embcache.Config{
			KeyPrefix: cfg.Index.KeyPrefix,
			Model:     cfg.Embedding.Model,
			TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	logger.Info("Embedder created",
		zap.String("base_url", cfg.Embedding.BaseURL),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheTTLSec > 0),
	)

	layout := questionrepo.Layout{KeyPrefix: cfg.Index.KeyPrefix, Name: cfg.Index.Name}
	questions := questionrepo.New(store, layout, cfg.Embedding.Dimensions, questionrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})

	searchSvc := searchuc.New(searchrepo.New(store, layout), embedder, searchuc.Config{
		SemanticTimeout: time.Duration(cfg.Search.SemanticTimeoutSec) * time.Second,
		KeywordTimeout:  time.Duration(cfg.Search.KeywordTimeoutSec) * time.Second,
		Duration:        metrics.SearchRequestDuration,
		Hits:            metrics.SearchHitsTotal,
	})
	healthSvc := healthuc.New(store, base, questions)

	server := chiTransport.NewServer(searchSvc, healthSvc, cfg.Search.PageSize, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, logger)

	return handler, store.Close, nil
}
