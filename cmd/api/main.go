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
	"golang.org/x/sync/errgroup"

	"shortshive/internal/adapter/repo"
	"shortshive/internal/animation"
	"shortshive/internal/http/handlers"
	"shortshive/internal/http/httpapi"
	"shortshive/internal/infra"
	"shortshive/internal/infra/credentials"
	"shortshive/internal/jobs"
	"shortshive/internal/observability"
	"shortshive/internal/providers/genai"
	"shortshive/internal/providers/image"
	"shortshive/internal/providers/story"
	"shortshive/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api: stopped with error")
	}
	logger.Info().Msg("api: stopped")
}

func run(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	store := repo.NewSceneStore(runner)
	creds := credentials.NewStore(runner)

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.PublicImagePath)
	if err != nil {
		return err
	}
	persister, err := animation.NewPersister(ctx, fileStore)
	if err != nil {
		return err
	}

	generator, err := newGenerator(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	tracker, closeTracker, err := newTracker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTracker()

	var uploader animation.Uploader
	if cfg.DurableStoragePath != "" {
		mirror, err := storage.NewMirrorUploader(cfg.DurableStoragePath, cfg.DurableBaseURL)
		if err != nil {
			return err
		}
		uploader = mirror
	}

	metrics := observability.NewMetrics()
	svc := animation.NewService(store, generator, tracker, persister, animation.Options{
		MaxScenes: cfg.MaxScenes,
		Uploader:  uploader,
		Metrics:   metrics,
		Logger:    logger,
	})
	stories := animation.NewStoryService(store, newRefiner(ctx, cfg, creds, logger), logger)

	if cfg.SweepSchedule != infra.SweepDisabled {
		sweeper := animation.NewSweeper(store, cfg.StaleAfter, metrics, logger)
		if err := sweeper.Start(ctx, cfg.SweepSchedule); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	router := httpapi.NewRouter(handlers.NewApp(svc, stories, logger), httpapi.Options{
		Logger:             logger,
		Metrics:            metrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		StaticDir:          fileStore.BasePath(),
		StaticPath:         cfg.PublicImagePath,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	if rt, ok := tracker.(*jobs.RedisTracker); ok {
		g.Go(func() error {
			return rt.Subscribe(gctx, svc.JobFinished)
		})
	}
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// let pending durable uploads record their rows
		svc.Wait()
		return err
	})
	return g.Wait()
}

func newGenerator(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) (image.Generator, error) {
	key, err := creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("api: failed to load gemini api key from store")
	}
	client, err := genai.NewClient(genai.Options{
		APIKey:     key,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Logger:     &logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure gemini client: %w", err)
	}
	if !client.HasCredentials() {
		logger.Warn().Str("model", client.Model()).Msg("api: gemini api key missing, using synthetic images")
	}
	return image.NewGeminiGenerator(client), nil
}

func newRefiner(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) story.Refiner {
	key, err := creds.Resolve(ctx, credentials.ProviderOpenRouter, cfg.RefinerAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("api: failed to load refiner api key from store")
	}
	if key == "" {
		logger.Warn().Msg("api: refiner api key missing, splitting stories locally")
		return story.NewStaticRefiner()
	}
	refiner, err := story.NewOpenAIRefiner(story.OpenAIOptions{
		APIKey:     key,
		Model:      cfg.RefinerModel,
		BaseURL:    cfg.RefinerBaseURL,
		MaxRetries: 2,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("api: refiner unavailable, splitting stories locally")
		return story.NewStaticRefiner()
	}
	return refiner
}

// newTracker uses Redis when REDIS_URL is set so several API replicas share
// the in-flight guard.
func newTracker(ctx context.Context, cfg *infra.Config) (jobs.Tracker, func(), error) {
	if cfg.RedisURL == "" {
		return jobs.NewMemoryTracker(cfg.JobTTL), func() {}, nil
	}
	rdb, err := jobs.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return jobs.NewRedisTracker(rdb, cfg.JobTTL), func() { _ = rdb.Close() }, nil
}
