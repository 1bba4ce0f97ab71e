package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/api/handlers"
	"github.com/mailsift/mailsift/api/middleware"
	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/internal/repository"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, cfg *config.Config) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	syncHandler := handlers.NewSyncHandler(s)
	emailsHandler := handlers.NewEmailsHandler(repos, s.StorageService, cfg)
	settingsHandler := handlers.NewSettingsHandler(s, cfg)

	// Health check and status endpoints stay outside the key check
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.SyncService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILSIFT-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware("mailsift"))
	api.Use(middleware.TracingMiddleware())
	{
		// Sync endpoints
		sync := api.Group("/sync")
		{
			sync.POST("", syncHandler.StartSync())
			sync.DELETE("", syncHandler.CancelSync())
			sync.GET("/sessions", syncHandler.ListSessions())
			sync.GET("/sessions/:id", syncHandler.GetSession())
			sync.GET("/stream/:id", syncHandler.StreamProgress())
			sync.POST("/confirm", syncHandler.ConfirmCloudDispatch())
		}

		// Email endpoints
		emails := api.Group("/emails")
		{
			emails.GET("", emailsHandler.ListEmails())
			emails.GET("/stats", emailsHandler.EmailStats())
			emails.GET("/:id", emailsHandler.GetEmail())
			emails.PUT("/:id/read", emailsHandler.MarkRead())
			emails.PUT("/:id/archive", emailsHandler.Archive())
			emails.PUT("/:id/unarchive", emailsHandler.Unarchive())
			emails.DELETE("/:id", emailsHandler.DeleteEmail())
		}

		// Settings endpoints
		settings := api.Group("/settings")
		{
			settings.GET("", settingsHandler.GetAISettings())
			settings.PUT("", settingsHandler.UpdateAISettings())
			settings.POST("/test-imap", settingsHandler.TestIMAP())
			settings.POST("/test-ai-local", settingsHandler.TestLocalAI())
			settings.POST("/test-ai-api", settingsHandler.TestAPIAI())
		}
	}
}
