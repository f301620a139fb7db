package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"lexdraft-backend/collector"
	"lexdraft-backend/config"
	"lexdraft-backend/handlers"
	"lexdraft-backend/llm"
	"lexdraft-backend/logger"
	"lexdraft-backend/repository"
	"lexdraft-backend/research"
	"lexdraft-backend/service"
	"lexdraft-backend/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewStructured("error", "console").WithError(err).Error("Failed to load configuration", nil)
		os.Exit(1)
	}
	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.WithError(err).Error("Server exited", nil)
		os.Exit(1)
	}
}

// run wires every component and serves until ctx is cancelled. Deferred
// cleanup runs before it returns, including on startup failures.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	fileStorage, err := storage.NewStorage(ctx, cfg.Storage.ToStorage())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", logger.Fields{"type": cfg.Storage.Type})

	catalog, err := loadCatalog(ctx, fileStorage, cfg.Mappings.Path, log)
	if err != nil {
		return fmt.Errorf("failed to load document-type catalog: %w", err)
	}
	registry := collector.NewRegistry(catalog, log)

	completer, err := initCompleter(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to initialize completion provider: %w", err)
	}

	db, err := repository.Connect(ctx, cfg.Database.URL)
	switch {
	case errors.Is(err, repository.ErrNoDatabaseURL):
		log.Warn("DATABASE_URL not set, knowledge-base research disabled", nil)
	case err != nil:
		log.WithError(err).Warn("Postgres unavailable, knowledge-base research disabled", nil)
	default:
		defer db.Close()
		log.Info("Postgres connection established", nil)
	}

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	drafts := service.NewDraftService(
		service.DraftWithRegistry(registry),
		service.DraftWithResearcher(initResearch(ctx, cfg.Research, db, redisClient, log)),
		service.DraftWithPromptBuilder(service.NewPromptBuilder(cfg.Generation.MaxPromptChars, log)),
		service.DraftWithGenerator(service.NewSectionGenerator(completer,
			service.GeneratorWithTimeout(cfg.Generation.SectionTimeout),
			service.GeneratorWithConcurrency(cfg.Generation.Concurrency),
			service.GeneratorWithParams(llm.Params{Temperature: cfg.LLM.Temperature}),
			service.GeneratorWithLogger(log),
		)),
		service.DraftWithValidator(service.NewLLMValidator(completer, cfg.Generation.MaxPromptChars, log)),
		service.DraftWithMaxRevisions(cfg.Generation.MaxRevisions),
		service.DraftWithLogger(log),
	)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	handlers.NewDocumentHandler(drafts, cfg.Generation.Validate, log).RegisterRoutes(api)
	handlers.NewMappingHandler(fileStorage, cfg.Mappings.Path, log).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	log.Info("Server starting", logger.Fields{"port": cfg.Server.Port, "provider": cfg.LLM.Provider})
	return serve(ctx, srv, cfg.Generation.SectionTimeout+10*time.Second, log)
}

// serve runs srv until ctx is cancelled or the listener fails, then drains
// in-flight requests for at most grace.
func serve(ctx context.Context, srv *http.Server, grace time.Duration, log logger.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
		log.Info("Shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func loadCatalog(ctx context.Context, store storage.Storage, key string, log logger.Logger) (*collector.Catalog, error) {
	if key == "" {
		return collector.LoadDefault()
	}
	cat, err := collector.LoadFrom(ctx, store, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("No published catalog, using embedded", logger.Fields{"key": key})
		return collector.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	log.Info("Loaded published catalog", logger.Fields{"key": key, "types": len(cat.Types)})
	return cat, nil
}

func initCompleter(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (llm.Completer, error) {
	var base llm.Completer
	switch cfg.Provider {
	case config.ProviderAnthropic:
		c, err := llm.NewAnthropicCompleter(cfg.APIKey(), cfg.AnthropicModel)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		client, err := llm.NewGeminiClient(ctx, cfg.APIKey())
		if err != nil {
			return nil, err
		}
		base = llm.NewGeminiCompleter(client, cfg.GeminiModel, log)
	}
	log.Info("Completion provider initialized", logger.Fields{"provider": cfg.Provider, "model": cfg.Model()})
	return llm.NewRetrying(base, cfg.MaxAttempts, cfg.InitialBackoff, log), nil
}

// initResearch combines the knowledge base and web search behind the Redis
// cache. Returns nil when research is disabled or no source is available.
func initResearch(ctx context.Context, cfg config.ResearchConfig, db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) service.Researcher {
	if !cfg.Enabled {
		return nil
	}

	var retrievers []research.Retriever
	if db != nil {
		retrievers = append(retrievers, repository.NewLegalChunkRepository(db, cfg.KnowledgeBaseLimit))
	}
	if cfg.WebSearch.Enabled() {
		web, err := research.NewWebSearch(ctx, cfg.WebSearch.ToResearch(), log)
		if err != nil {
			log.WithError(err).Warn("Web search disabled", nil)
		} else {
			retrievers = append(retrievers, web)
		}
	}
	if len(retrievers) == 0 {
		log.Warn("No research sources configured", nil)
		return nil
	}

	var retriever research.Retriever = research.NewMulti(log, retrievers...)
	if rdb != nil {
		retriever = research.NewCache(retriever, rdb, cfg.CacheTTL, log)
	}
	return research.NewGatherer(retriever,
		research.GatherWithLimit(cfg.ResultsPerPhrase),
		research.GatherWithTimeout(cfg.Timeout),
		research.GatherWithLogger(log),
	)
}
