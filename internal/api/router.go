package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/scoreviz/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/scoreviz/internal/api/middleware"
	"github.com/Conceptual-Machines/scoreviz/internal/config"
	"github.com/Conceptual-Machines/scoreviz/internal/metrics"
	"github.com/Conceptual-Machines/scoreviz/internal/templates"
)

// Dependencies are the collaborators the HTTP layer is built on.
// History and the health checks are optional.
type Dependencies struct {
	Visualizer    handlers.Visualizer
	Registry      *templates.Registry
	History       handlers.RunHistory
	HealthChecks  map[string]handlers.Pinger
	SentryMetrics *metrics.SentryMetrics
	Metrics       *metrics.Client
	RunStats      *metrics.RunStats
}

func SetupRouter(cfg *config.Config, deps Dependencies, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.SentryMetrics, deps.Metrics))

	// CORS for the visualization frontend
	router.Use(apimiddleware.CORS(cfg.CORSOrigins))

	// Generated images (local store only)
	if cfg.ImageStore == config.StoreFile {
		router.Static("/images", cfg.OutputDir)
	}

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	var stats handlers.RunStatsSource
	if deps.RunStats != nil {
		stats = deps.RunStats
	}
	metricsHandler := handlers.NewMetricsHandler(version, stats, map[string]interface{}{
		"templates":       deps.Registry.Len(),
		"concurrency":     cfg.Concurrency,
		"image_store":     cfg.ImageStore,
		"narration_model": cfg.NarrationModel,
		"image_model":     cfg.ImageModel,
		"history":         deps.History != nil,
	})
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	api := router.Group("/api")
	{
		templatesHandler := handlers.NewTemplatesHandler(deps.Registry)
		api.GET("/templates", templatesHandler.ListTemplates)

		visualizeHandler := handlers.NewVisualizeHandler(deps.Visualizer, deps.Registry, cfg.OutputDir, cfg.MaxUploadMB)
		api.POST("/process-music", visualizeHandler.ProcessMusic)
		api.POST("/visualize", visualizeHandler.Visualize)

		if deps.History != nil {
			runsHandler := handlers.NewRunsHandler(deps.History)
			api.GET("/runs", runsHandler.ListRuns)
			api.GET("/runs/:id", runsHandler.GetRun)
		}
	}

	return router
}
