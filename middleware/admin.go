package middleware

import (
	"crypto/subtle"

	"viola-chatbot/internal/logger"
	"viola-chatbot/utils"

	"github.com/gin-gonic/gin"
)

const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator endpoints with a shared token. With no
// token configured the endpoints are reported as not found.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			utils.RespondWithNotFound(c, "Endpoint not found")
			c.Abort()
			return
		}

		got := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.Warn("Rejected admin request",
				"ip", c.ClientIP(),
				"path", c.FullPath(),
				"request_id", GetRequestID(c),
			)
			utils.RespondWithUnauthorized(c, "Invalid admin token")
			c.Abort()
			return
		}

		c.Next()
	}
}
