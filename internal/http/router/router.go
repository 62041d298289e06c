package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket-backend/internal/config"
	"github.com/ignatzorin/gigmarket-backend/internal/http/handlers"
	"github.com/ignatzorin/gigmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/gigmarket-backend/internal/service"
)

// SetupRouter собирает HTTP маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	gigHandler *handlers.GigHandler,
	orderHandler *handlers.OrderHandler,
	paymentHandler *handlers.PaymentHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
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

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/gigs", gigHandler.List)
	api.GET("/gigs/:id", gigHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/gigs", gigHandler.Create)

		protected.POST("/orders", orderHandler.Place)
		protected.GET("/orders/my-orders", orderHandler.ListMy)
		protected.GET("/orders/:id", orderHandler.Get)
		protected.PUT("/orders/:id/status", orderHandler.UpdateStatus)
		protected.GET("/orders/:id/messages", orderHandler.ListMessages)
		protected.POST("/orders/:id/messages", orderHandler.SendMessage)
		protected.POST("/orders/:id/rating", orderHandler.Rate)

		protected.POST("/payments/intent", paymentHandler.CreateIntent)
		protected.POST("/payments/confirm", paymentHandler.Confirm)
		protected.POST("/payments/release", paymentHandler.Release)
		protected.POST("/payments/refund", paymentHandler.Refund)
		protected.GET("/payments/my-payments", paymentHandler.ListMy)
		protected.GET("/payments/stats", paymentHandler.Stats)
		protected.GET("/payments/:id", paymentHandler.Get)

		protected.POST("/disputes", disputeHandler.Open)
		protected.GET("/disputes/my-disputes", disputeHandler.ListMy)
		protected.GET("/disputes/:id", disputeHandler.Get)
		protected.POST("/disputes/:id/messages", disputeHandler.SendMessage)
		protected.POST("/disputes/:id/evidence", disputeHandler.AddEvidence)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	// Администрирование споров
	admin := api.Group("/disputes")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.PUT("/:id/review", disputeHandler.TakeUnderReview)
		admin.PUT("/:id/resolve", disputeHandler.Resolve)
		admin.PUT("/:id/close", disputeHandler.Close)
		admin.GET("/admin/all", disputeHandler.ListAll)
		admin.GET("/stats/overview", disputeHandler.Stats)
	}

	return r
}
