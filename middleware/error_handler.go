package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xplorer1/eskalate-news-api/utils"
)

// ErrorHandler renders the last error attached by a handler. Expected
// failures (*utils.AppError) keep their status and messages; anything else
// becomes the generic 500 envelope. Details of unexpected errors are logged
// only outside production.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		var appErr *utils.AppError
		if !errors.As(lastErr.Err, &appErr) {
			if production {
				log.Error("unhandled error", zap.String("path", c.Request.URL.Path), zap.String("request_id", c.GetString(ContextRequestIDKey)))
			} else {
				log.Error("unhandled error",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(ContextRequestIDKey)),
					zap.Error(lastErr.Err),
				)
			}
		}
		utils.AbortWithError(c, lastErr.Err)
	}
}
