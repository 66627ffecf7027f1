package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ollama-chat/internal/logging"
)

// RequestLogger reads or generates an X-Request-ID, injects a request-scoped
// logger into the request context and logs the completed request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(logging.HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := logger.With().
			Str(logging.FieldRequestID, reqID).
			Str(logging.FieldMethod, c.Request.Method).
			Str(logging.FieldPath, c.Request.URL.Path).
			Str(logging.FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(logging.HeaderRequestID, reqID)
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), child))

		c.Next()

		evt := child.Info()
		if c.Writer.Status() >= 500 {
			evt = child.Error()
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Int(logging.FieldStatus, c.Writer.Status()).
			Float64(logging.FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("request completed")
	}
}
