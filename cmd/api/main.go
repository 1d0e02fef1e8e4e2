package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/ai"
	"github.com/iago/blog-generation-back/internal/cache"
	"github.com/iago/blog-generation-back/internal/config"
	"github.com/iago/blog-generation-back/internal/events"
	httpserver "github.com/iago/blog-generation-back/internal/http"
	"github.com/iago/blog-generation-back/internal/http/handlers"
	"github.com/iago/blog-generation-back/internal/http/middleware"
	"github.com/iago/blog-generation-back/internal/lock"
	"github.com/iago/blog-generation-back/internal/logging"
	"github.com/iago/blog-generation-back/internal/prompt"
	"github.com/iago/blog-generation-back/internal/repository"
	"github.com/iago/blog-generation-back/internal/service"
	"github.com/iago/blog-generation-back/internal/worker"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	dotenvErr := config.LoadDotEnv(".env", ".env.local")
	cfg := config.Load()

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	if dotenvErr != nil {
		logger.Warn().Err(dotenvErr).Msg("failed loading .env files")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthChecks := make(map[string]handlers.HealthCheck)

	store, storeCloser := setupStore(ctx, cfg, logger, healthChecks)
	defer storeCloser()

	redisClient := setupRedis(ctx, cfg, logger, healthChecks)
	if redisClient != nil {
		defer redisClient.Close()
	}
	lease, publisher := setupCoordination(cfg, redisClient, logger)

	generation := service.NewGenerationService(service.GenerationDependencies{
		Router: ai.NewModelRouter(ai.ModelRouterConfig{
			ArticlePrimary:   cfg.ModelArticlePrimary,
			ArticleFallback:  cfg.ModelArticleFallback,
			RewritePrimary:   cfg.ModelRewritePrimary,
			RewriteFallback:  cfg.ModelRewriteFallback,
			KeywordsPrimary:  cfg.ModelKeywordsPrimary,
			KeywordsFallback: cfg.ModelKeywordsFallback,
		}),
		Client:  setupProvider(cfg, logger),
		Prompts: prompt.NewRenderer(cfg.PromptsDir),
		Cache: cache.NewResponseCache(cache.Config{
			TTL:        cfg.CacheTTL(),
			MaxEntries: cfg.CacheMaxEntries,
		}),
		Logger: &logger,
	})

	jobs := service.NewJobsService(store, service.JobsConfig{
		DailyQuota: cfg.DailyJobQuota,
		Location:   cfg.QuotaLocation(),
		Logger:     &logger,
	})
	posts := service.NewPostsService(store, service.PostsConfig{
		AppURL: cfg.AppURL,
		Logger: &logger,
	})

	dispatcher := worker.NewDispatcher(store, generation, lease, publisher, worker.Config{
		BatchSize:         cfg.DispatchBatchSize,
		StaleAfter:        cfg.StaleAfter(),
		LeaseTTL:          cfg.DispatchLease(),
		GenerationTimeout: cfg.GenerationTimeout(),
		Logger:            &logger,
	})
	if interval := cfg.DispatchInterval(); interval > 0 {
		go worker.NewScheduler(dispatcher, &logger).Start(ctx, interval)
		logger.Info().Dur("interval", interval).Msg("in-process dispatch scheduler started")
	} else {
		logger.Info().Msg("in-process dispatch scheduler disabled, waiting for /internal/dispatch")
	}
	if cfg.CronSecret == "" {
		logger.Warn().Msg("CRON_SECRET not configured, /internal routes reject every request")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.StartJanitor(ctx, rateLimiterIdle)

	api := handlers.NewAPI(handlers.Dependencies{
		Jobs:         jobs,
		Posts:        posts,
		Generation:   generation,
		Dispatcher:   dispatcher,
		Events:       publisher,
		HealthChecks: healthChecks,
		Logger:       &logger,
	})
	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:         api,
		Logger:      logger,
		AuthToken:   cfg.AuthToken,
		CronSecret:  cfg.CronSecret,
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimiter: limiter,
	})

	// Dispatch passes answer synchronously, so the write timeout has to cover
	// a full batch of generation calls.
	writeTimeout := time.Duration(cfg.DispatchBatchSize+1)*cfg.GenerationTimeout() + 15*time.Second
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupStore(
	ctx context.Context,
	cfg config.Config,
	logger zerolog.Logger,
	checks map[string]handlers.HealthCheck,
) (repository.Store, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not configured, using in-memory store")
		return repository.NewMemoryStore(), func() {}
	}

	pgStore, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize postgres store")
		os.Exit(1)
	}
	checks["postgres"] = pgStore.Ping
	logger.Info().Msg("postgres store initialized")
	return pgStore, pgStore.Close
}

func setupRedis(
	ctx context.Context,
	cfg config.Config,
	logger zerolog.Logger,
	checks map[string]handlers.HealthCheck,
) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("REDIS_ADDR not configured, using process-local lease and event ring")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, fallback to process-local coordination")
		_ = client.Close()
		return nil
	}

	checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis client initialized")
	return client
}

func setupCoordination(cfg config.Config, client *redis.Client, logger zerolog.Logger) (lock.Lease, events.Publisher) {
	if client == nil {
		return lock.NewLocalLease(), events.NewLocalPublisher(0)
	}

	var lease lock.Lease = lock.NewLocalLease()
	redisLease, err := lock.NewRedisLease(client, cfg.RedisLockKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set up redis lease, fallback to local lease")
	} else {
		lease = redisLease
	}

	var publisher events.Publisher = events.NewLocalPublisher(0)
	streams, err := events.NewStreamsPublisher(client, events.StreamsConfig{
		Stream: cfg.RedisEventsStream,
		MaxLen: int64(cfg.RedisEventsMaxLen),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set up redis event stream, fallback to local ring")
	} else {
		publisher = streams
	}
	return lease, publisher
}

func setupProvider(cfg config.Config, logger zerolog.Logger) ai.TextGenerator {
	timeout := cfg.GenerationTimeout()
	switch cfg.GenerationProvider {
	case "openrouter":
		logger.Info().Msg("generation provider: openrouter")
		return ai.NewOpenRouterClient(ai.OpenRouterClientConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Timeout: timeout,
			SiteURL: cfg.OpenRouterSiteURL,
			AppName: cfg.OpenRouterAppName,
		})
	default:
		if cfg.GenerationProvider != "anthropic" {
			logger.Warn().Str("provider", cfg.GenerationProvider).Msg("unknown generation provider, using anthropic")
		}
		return ai.NewAnthropicClient(ai.AnthropicClientConfig{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
			Timeout: timeout,
		})
	}
}
