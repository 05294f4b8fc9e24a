package middleware

import (
	"time"

	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Logger HTTP 요청 로깅 미들웨어. 요청마다 X-Request-ID 부여
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []interface{}{
			"requestId", requestID,
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if userID := c.GetString(ContextUserID); userID != "" {
			fields = append(fields, "userId", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("HTTP Request", fields...)
		case status >= 400:
			logger.Warn("HTTP Request", fields...)
		default:
			logger.Info("HTTP Request", fields...)
		}
	}
}
