package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Middleware logs one line per request with method, path, status and duration.
func Middleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()

		var msg string
		switch {
		case status >= 500:
			msg = "server error"
		case status >= 400:
			msg = "client error"
		default:
			msg = "request completed"
		}

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Str("ip", c.ClientIP()).
			Msg(msg)
	}
}
