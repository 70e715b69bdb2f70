package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peerwire/signaling/config"
	"github.com/peerwire/signaling/internal/handlers"
	"github.com/peerwire/signaling/internal/logging"
	"github.com/peerwire/signaling/internal/middleware"
	"github.com/peerwire/signaling/internal/ratelimit"
	redisstore "github.com/peerwire/signaling/internal/redis"
	"github.com/peerwire/signaling/internal/registry"
	"github.com/peerwire/signaling/internal/sweeper"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.Setup("signaling-relay", cfg.Environment)

	// Presence mirror is optional; REDIS_ADDR unset disables it
	if err := redisstore.Connect(cfg.Redis); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisstore.Close()
	if redisstore.Enabled() {
		logger.Info("presence mirror enabled", "addr", cfg.Redis.Addr)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := registry.New()
	limiter := ratelimit.New(cfg.RateLimitCeiling, cfg.RateLimitWindow)

	// Liveness sweeper runs independently of signaling traffic
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw := sweeper.New(reg, cfg.InactivityThreshold, cfg.SweepInterval)
	go sw.Run(ctx)

	router := gin.Default()

	// Global middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))
	router.Use(handlers.RateLimit(limiter))

	startedAt := time.Now()
	router.GET("/health", handlers.Health(reg, startedAt))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))

		// Peer discovery/status (public)
		apiGroup.GET("/peers", handlers.ListPeers(reg))
		apiGroup.GET("/peers/count", handlers.CountPeers(reg))

		// Force-disconnect a peer (requires JWT)
		apiGroup.DELETE("/peers/:peerId", middleware.JWTAuth(cfg.JWTSecret), handlers.KickPeer(reg))
	}

	// WebSocket signaling endpoint
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", handlers.HandleSignaling(reg, cfg))
	}

	logger.Info("starting signaling relay",
		"port", cfg.Port,
		"sweep_interval", cfg.SweepInterval,
		"inactivity_threshold", cfg.InactivityThreshold,
		"rate_ceiling", cfg.RateLimitCeiling,
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
