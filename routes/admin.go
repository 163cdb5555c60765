package routes

import (
	"errors"
	"net/http"

	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/queue"
	"viola-chatbot/middleware"
	"viola-chatbot/models"
	"viola-chatbot/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupAdminRoutes registers POST /api/admin/reindex. A nil enqueuer means
// Redis is not configured and the endpoint answers 503.
func SetupAdminRoutes(router *gin.Engine, cfg *config.Config, enqueuer queue.Enqueuer) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.RequireAdminToken(cfg.AdminToken))

	admin.POST("/reindex", func(c *gin.Context) {
		if enqueuer == nil {
			utils.RespondWithServiceUnavailable(c, "Rebuild queue requires Redis")
			return
		}

		requestID := middleware.GetRequestID(c)
		task, err := queue.NewRebuildIndexTask(cfg.CorpusDir, requestID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create rebuild task", nil)
			return
		}

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		info, err := enqueuer.EnqueueContext(ctx, task)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			c.JSON(http.StatusConflict, models.ReindexResponse{Queue: queue.QueueIndex, Status: "already_queued"})
			return
		}
		if err != nil {
			logger.Error("Failed to enqueue index rebuild", "error", err, "request_id", requestID)
			utils.RespondWithServiceUnavailable(c, "Failed to enqueue rebuild")
			return
		}

		logger.Info("Index rebuild enqueued", "task_id", info.ID, "request_id", requestID)
		c.JSON(http.StatusAccepted, models.ReindexResponse{
			TaskID: info.ID,
			Queue:  info.Queue,
			Status: "queued",
		})
	})
}
