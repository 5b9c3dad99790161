package router

import (
	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/api/handlers"
	"github.com/compressly/compressly/internal/api/middleware"
	"github.com/compressly/compressly/internal/auth"
	"github.com/compressly/compressly/internal/bridge"
	"github.com/compressly/compressly/internal/db"
	"github.com/compressly/compressly/internal/export"
	"github.com/compressly/compressly/internal/history"
	"github.com/compressly/compressly/internal/session"
	"github.com/compressly/compressly/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func Setup(
	cfg *config.Config,
	repository db.Repository,
	store storage.Client,
	manager *session.Manager,
	provider auth.Provider,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Tracing first so the contextual logger can pick up trace ids.
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.ContextualLogger("api"))
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	bridgeClient := bridge.New(store, repository)
	exporter := export.New(&cfg.Export)
	historyService := history.New(repository, store)

	sessionHandler := handlers.NewSessionHandler(manager, exporter, bridgeClient, provider)
	historyHandler := handlers.NewHistoryHandler(historyService, provider)
	uploadHandler := handlers.NewUploadHandler(store, provider)
	healthHandler := handlers.NewHealthHandler(repository)

	r.GET("/health", healthHandler.Check)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/upload", uploadHandler.Upload)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)

			sessions.POST("/:id/images", sessionHandler.AddImages)
			sessions.GET("/:id/images", sessionHandler.ListImages)
			sessions.DELETE("/:id/images", sessionHandler.ClearImages)
			sessions.DELETE("/:id/images/:imageId", sessionHandler.RemoveImage)

			sessions.POST("/:id/compress", sessionHandler.Compress)

			sessions.POST("/:id/download", sessionHandler.DownloadAll)
			sessions.POST("/:id/images/:imageId/download", sessionHandler.DownloadImage)

			sessions.POST("/:id/save", sessionHandler.SaveAll)
			sessions.POST("/:id/images/:imageId/save", sessionHandler.SaveImage)
		}

		historyRoutes := api.Group("/history")
		{
			historyRoutes.GET("", historyHandler.List)
			historyRoutes.GET("/stats", historyHandler.Stats)
			historyRoutes.DELETE("/:id", historyHandler.Delete)
		}
	}

	return r
}
