package main

import (
	"context"
	"log"
	"os"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/queue"
	"viola-chatbot/internal/telemetry"
	"viola-chatbot/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if !cfg.RedisEnabled() {
		logger.Error("REDIS_URL is required for the rebuild worker")
		os.Exit(1)
	}

	// A queued rebuild always re-embeds the corpus.
	cfg.RebuildEmbeddings = true

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	gemini, err := ai.NewGeminiClient(context.Background(), cfg, metrics)
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

	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		logger.Error("Invalid Redis settings", "error", err)
		os.Exit(1)
	}

	// Builds write one artifact, so tasks run one at a time.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				queue.QueueIndex: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	if cfg.ReindexCron != "" {
		client := asynq.NewClient(redisOpt)
		defer client.Close()

		scheduler, err := queue.NewRebuildScheduler(cfg.ReindexCron, client, cfg.CorpusDir)
		if err != nil {
			logger.Error("Failed to schedule rebuilds", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	processor := queue.NewTaskProcessor(builder, cfg.CorpusDir)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskRebuildIndex, processor.RebuildIndex)

	logger.Info("Starting rebuild worker", "queue", queue.QueueIndex, "cache", cfg.EmbeddingsCachePath)

	if err := server.Run(mux); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}
