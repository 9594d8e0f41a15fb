package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/scoreviz/internal/api/handlers"
	"github.com/Conceptual-Machines/scoreviz/internal/cache"
	"github.com/Conceptual-Machines/scoreviz/internal/config"
	"github.com/Conceptual-Machines/scoreviz/internal/database"
	"github.com/Conceptual-Machines/scoreviz/internal/features"
	"github.com/Conceptual-Machines/scoreviz/internal/llm"
	"github.com/Conceptual-Machines/scoreviz/internal/logger"
	"github.com/Conceptual-Machines/scoreviz/internal/metrics"
	"github.com/Conceptual-Machines/scoreviz/internal/observability"
	"github.com/Conceptual-Machines/scoreviz/internal/pipeline"
	"github.com/Conceptual-Machines/scoreviz/internal/prompt"
	"github.com/Conceptual-Machines/scoreviz/internal/services"
	"github.com/Conceptual-Machines/scoreviz/internal/storage"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

// app holds the wired collaborators of one command invocation
type app struct {
	cfg           *config.Config
	svc           *services.VisualizationService
	sentryMetrics *metrics.SentryMetrics
	cloudwatch    *metrics.Client
	runStats      *metrics.RunStats
	langfuse      *observability.LangfuseClient
	history       *database.RunRepository
	db            *gorm.DB
	redis         *redis.Client
}

// newApp builds the service. perRunStores gives every run its own output
// directory or key prefix, which the HTTP server needs for concurrent requests.
func newApp(ctx context.Context, cfg *config.Config, perRunStores bool) (*app, error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var err error
	a.sentryMetrics = metrics.NewSentryMetrics(cfg.SentryDSN != "")
	if a.cloudwatch, err = metrics.NewClient(ctx, cfg.Environment, cfg.MetricsEnabled); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	a.langfuse = observability.InitializeLangfuse(ctx, cfg)

	recorders := llm.Recorders{a.cloudwatch, a.sentryMetrics}
	a.runStats = metrics.NewRunStats()
	observers := pipeline.Observers{a.cloudwatch, a.sentryMetrics, a.runStats}
	if a.langfuse.IsEnabled() {
		recorders = append(recorders, a.langfuse)
		observers = append(observers, a.langfuse)
	}

	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey, recorders)
	gemini, err := factory.Gemini(ctx, cfg.ExtractionModel, cfg.ImageModel)
	if err != nil {
		return nil, err
	}
	narrator, err := factory.GetProvider(ctx, cfg.NarrationModel, "")
	if err != nil {
		return nil, fmt.Errorf("init narration provider: %w", err)
	}
	log.Printf("🤖 Models: extraction=%s narration=%s (%s) image=%s",
		cfg.ExtractionModel, cfg.NarrationModel, narrator.Name(), cfg.ImageModel)

	loader := prompt.NewPromptLoader()
	builder, err := prompt.NewNarrationBuilder(loader, cfg.NarrationMaxWords)
	if err != nil {
		return nil, err
	}
	disclaimer, err := loader.GetConsistencyDisclaimer()
	if err != nil {
		return nil, err
	}
	extractionPrompt, err := loader.GetFeatureExtractionPrompt()
	if err != nil {
		return nil, err
	}

	var featureCache features.Cache
	if cfg.CacheEnabled() {
		fc, rdb, err := cache.NewRedisFeatureCache(ctx, cfg.RedisAddr, cfg.FeatureCacheTTL)
		if err != nil {
			logger.Warn("Feature cache disabled", logger.Fields{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			log.Printf("✅ Feature cache enabled (redis: %s, ttl: %s)", cfg.RedisAddr, cfg.FeatureCacheTTL)
			featureCache, a.redis = fc, rdb
		}
	}

	if cfg.HistoryEnabled() {
		if a.db, err = database.Connect(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		if err := database.Migrate(a.db); err != nil {
			return nil, err
		}
		a.history = database.NewRunRepository(a.db)
		observers = append(observers, a.history)
	}

	stores, err := newStores(cfg, perRunStores)
	if err != nil {
		return nil, err
	}

	extractor := features.NewExtractor(gemini, gemini, cfg.ExtractionModel, extractionPrompt, featureCache)
	a.svc = services.NewVisualizationService(extractor, narrator, gemini, builder, stores, services.VisualizationOptions{
		Concurrency: cfg.Concurrency,
		Disclaimer:  disclaimer,
		Observer:    observers,
		Langfuse:    a.langfuse,
	})
	return a, nil
}

func newStores(cfg *config.Config, perRun bool) (services.StoreFactory, error) {
	switch cfg.ImageStore {
	case config.StoreS3:
		base, err := storage.NewS3Store(cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		if perRun {
			return services.RunScopedS3Stores(base), nil
		}
		return services.SharedStore(base), nil
	default:
		if perRun {
			return services.RunScopedFileStores(cfg.OutputDir), nil
		}
		return services.SharedStore(storage.NewFileStore(cfg.OutputDir)), nil
	}
}

// healthChecks lists the optional backing services; disabled ones are nil
func (a *app) healthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"redis": nil, "database": nil}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return checks
}

// close waits for metric writes and releases connections
func (a *app) close() {
	a.cloudwatch.Wait()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", logger.Fields{"error": err.Error()})
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// selectTemplates narrows the builtin catalog to the --templates flag
func selectTemplates() (*templates.Registry, error) {
	return templates.Builtin().Select(templates.ParseList(flagTemplates)...)
}
