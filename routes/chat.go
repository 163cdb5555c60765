package routes

import (
	"context"
	"net/http"

	"viola-chatbot/internal/logger"
	"viola-chatbot/middleware"
	"viola-chatbot/models"
	"viola-chatbot/services"
	"viola-chatbot/utils"

	"github.com/gin-gonic/gin"
)

// Answerer produces an answer for one question against the index.
type Answerer interface {
	Answer(ctx context.Context, question string, index *services.VectorIndex) (services.Answer, error)
}

// SetupChatRoutes registers POST /api/ask. Extra middleware, such as the rate
// limiter, applies to the /api group only.
func SetupChatRoutes(router *gin.Engine, answerer Answerer, index *services.VectorIndex, mw ...gin.HandlerFunc) {
	api := router.Group("/api")
	api.Use(mw...)

	api.POST("/ask", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		requestID := middleware.GetRequestID(c)

		answer, err := answerer.Answer(c.Request.Context(), req.Question, index)
		if err != nil {
			logger.Error("Failed to answer question", "error", err, "request_id", requestID)
			utils.RespondWithInternalError(c, "Failed to answer question", nil)
			return
		}

		logger.Info("Question answered",
			"request_id", requestID,
			"kind", answer.Kind,
			"sources", answer.Sources,
		)

		resp := models.AskResponse{
			Question:  answer.Question,
			Answer:    answer.Text,
			HTML:      answer.HTML,
			Kind:      string(answer.Kind),
			Sources:   answer.Sources,
			ReadMore:  services.ReadMoreLink(answer.Question, answer),
			RequestID: requestID,
		}
		if answer.Kind != services.KindEmpty {
			resp.DisplayHTML = services.FormatExchange(answer.Question, answer.HTML)
		}

		c.JSON(http.StatusOK, resp)
	})
}
