package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/logger"
)

// ErrorHandler renders the last error attached to the context with
// c.Error, unless the handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError writes err as {"error": {"code", "message"}}. AppErrors keep
// their status and code. Anything else is logged and reported as a generic
// internal error so driver messages never reach the client.
func WriteError(c *gin.Context, err error) {
	appErr := apperrors.ErrInternalServer
	if !errors.As(err, &appErr) {
		logger.Named("http").Errorw("unexpected error",
			"error", err.Error(),
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Named("http").Errorw("app error",
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"request_id", c.GetString(requestIDKey),
			"route", c.FullPath(),
		)
	}

	c.JSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// abortWithError writes err and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	c.Abort()
	WriteError(c, err)
}
