package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/logger"
)

// PipelineKeyHeader carries the shared key of machine callers such as the
// rate refresh cron.
const PipelineKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards machine-to-machine endpoints with a shared
// key. An empty configured key disables the endpoints entirely.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithError(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		key := c.GetHeader(PipelineKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			logger.Named("pipeline").Warnw("rejected pipeline request",
				"route", c.FullPath(),
				"client_ip", c.ClientIP(),
				"key_present", key != "",
			)
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
