package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gallery-backend/internal/config"
	"github.com/ignatzorin/gallery-backend/internal/http/handlers"
	"github.com/ignatzorin/gallery-backend/internal/http/middleware"
	"github.com/ignatzorin/gallery-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	galleryHandler *handlers.GalleryHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	api.POST("/auth/anonymous", middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod), authHandler.SignInAnonymously)
	api.GET("/ws", wsHandler.Handle)

	// Все операции с галереей требуют анонимной сессии.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/images", galleryHandler.ListImages)
		protected.POST("/images", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), galleryHandler.UploadImage)
		protected.GET("/images/:id", middleware.UUIDValidator("id"), galleryHandler.GetImage)
		protected.GET("/images/:id/content", middleware.UUIDValidator("id"), galleryHandler.GetImageContent)
		protected.DELETE("/images/:id", middleware.UUIDValidator("id"), galleryHandler.DeleteImage)
	}

	return r
}
