package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/victorivanov/caremsg/internal/auth"
	"github.com/victorivanov/caremsg/internal/gateway"
	"github.com/victorivanov/caremsg/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Auth     *AuthHandler
	Messages *MessageHandler
	Gateway  *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
	Registry     *prometheus.Registry
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// WebSocket gateway (notification channel)
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	api := e.Group("/api")

	// Auth routes — no auth middleware, stricter rate limit
	authGroup := api.Group("/auth",
		RateLimitMiddleware(deps.Redis, 5, time.Minute),
	)
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/refresh", deps.Auth.Refresh)

	// Protected routes — require JWT auth + general rate limit
	authMw := deps.TokenService.Middleware()
	protected := api.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 120, time.Minute),
	)

	protected.POST("/auth/logout", deps.Auth.Logout)

	// Messaging
	protected.GET("/messages/conversations", deps.Messages.ListConversations)
	protected.GET("/messages/conversation/:id", deps.Messages.GetThread)
	protected.POST("/messages/send", deps.Messages.SendMessage)
	protected.PUT("/messages/read/:id", deps.Messages.MarkRead)
}
