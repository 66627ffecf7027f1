package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ollama-chat/internal/logging"
)

// CORS allows any origin and answers preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+logging.HeaderRequestID)
		c.Header("Access-Control-Expose-Headers", logging.HeaderRequestID)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
