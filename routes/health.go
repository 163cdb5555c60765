package routes

import (
	"net/http"
	"time"

	"viola-chatbot/models"
	"viola-chatbot/services"
	"viola-chatbot/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupHealthRoutes registers liveness and readiness probes. rdb may be nil.
func SetupHealthRoutes(router *gin.Engine, index *services.VectorIndex, rdb *redis.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	router.GET("/ready", func(c *gin.Context) {
		if index == nil {
			utils.RespondWithServiceUnavailable(c, "Vector index not loaded")
			return
		}

		resp := models.ReadyResponse{
			Status:    "ready",
			Entries:   index.Len(),
			Timestamp: time.Now(),
		}

		if rdb != nil {
			ctx, cancel := utils.WithShortTimeout(c.Request.Context())
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				// Redis only backs optional features, so readiness is kept.
				resp.Redis = "unavailable"
			} else {
				resp.Redis = "ok"
			}
		}

		c.JSON(http.StatusOK, resp)
	})
}
