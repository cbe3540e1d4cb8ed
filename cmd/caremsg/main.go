package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/victorivanov/caremsg/internal/api"
	"github.com/victorivanov/caremsg/internal/auth"
	"github.com/victorivanov/caremsg/internal/config"
	"github.com/victorivanov/caremsg/internal/database"
	"github.com/victorivanov/caremsg/internal/gateway"
	"github.com/victorivanov/caremsg/internal/metrics"
	redisclient "github.com/victorivanov/caremsg/internal/redis"
	"github.com/victorivanov/caremsg/internal/service"
	"github.com/victorivanov/caremsg/internal/snowflake"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	// --- Infrastructure ---

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	sf, err := snowflake.NewGenerator(1)
	if err != nil {
		slog.Error("snowflake init failed", "error", err)
		os.Exit(1)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret)

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	// --- Repositories ---

	users := database.NewUserRepository(pool)
	messages := database.NewMessageRepository(pool)

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, rdb, collector)

	// --- Services and handlers ---

	authSvc := service.NewAuthService(users, tokenSvc, rdb, sf)
	threadSvc := service.NewThreadService(messages, users, sf, gwManager, collector)
	conversationSvc := service.NewConversationService(messages)

	deps := &api.Dependencies{
		Auth:         api.NewAuthHandler(authSvc),
		Messages:     api.NewMessageHandler(threadSvc, conversationSvc),
		Gateway:      gwManager,
		TokenService: tokenSvc,
		Redis:        rdb,
		Registry:     registry,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware(collector))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("caremsg starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	if err := e.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
