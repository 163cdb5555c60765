package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/queue"
	"viola-chatbot/internal/telemetry"
	"viola-chatbot/middleware"
	"viola-chatbot/routes"
	"viola-chatbot/services"
	"viola-chatbot/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

const maxRequestBody = 64 << 10

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without build lock, rate limit and rebuild queue", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx := context.Background()

	gemini, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}
	defer gemini.Close()

	builder, err := services.NewIndexBuilderFromConfig(cfg, gemini, rdb, metrics)
	if err != nil {
		logger.Error("Failed to set up index builder", "error", err)
		os.Exit(1)
	}

	// The index is built once, before the first question is served.
	index, err := builder.Once(ctx, cfg.CorpusDir)
	if err != nil {
		logger.Error("Failed to build vector index", "error", err)
		os.Exit(1)
	}

	orchestrator := services.NewOrchestrator(gemini, gemini, cfg.TopK, metrics)

	var enqueuer queue.Enqueuer
	if rdb != nil {
		redisOpt, err := queue.RedisConnOpt(cfg)
		if err != nil {
			logger.Error("Invalid Redis settings for rebuild queue", "error", err)
			os.Exit(1)
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		enqueuer = client
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(maxRequestBody))

	routes.SetupHealthRoutes(router, index, rdb)
	routes.SetupChatRoutes(router, orchestrator, index, middleware.RateLimitMiddleware(rdb, cfg))
	routes.SetupAdminRoutes(router, cfg, enqueuer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "entries", index.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := utils.WithShutdownTimeout()
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
