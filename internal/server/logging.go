package server

import (
	"time"

	"innata/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggingMiddleware logs one line per request. Server errors log at
// error level.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			args = append(args, "user_id", userID)
		}

		if status >= 500 {
			logger.Error("HTTP request", args...)
			return
		}
		logger.Info("HTTP request", args...)
	}
}
