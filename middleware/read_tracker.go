package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/tracking"
)

// ReadGate decides whether a read should be recorded.
type ReadGate interface {
	ShouldLog(identifier, articleID string, now time.Time) bool
}

// ReadSink records an admitted read without blocking.
type ReadSink interface {
	LogRead(articleID string, readerID *string)
}

// ReadTracker records article reads after the handler has produced the
// response. Only successful GETs of an article count, and each
// (reader, article) pair is admitted at most once per limiter window.
// Errors left for ErrorHandler have not been written yet, so an unwritten
// response is treated as a failure.
func ReadTracker(gate ReadGate, sink ReadSink, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || len(c.Errors) > 0 ||
			!c.Writer.Written() || c.Writer.Status() != http.StatusOK {
			return
		}
		articleID := c.Param("id")
		if articleID == "" {
			return
		}

		userID, authenticated := UserID(c)
		allowed := gate.ShouldLog(tracking.Identifier(userID, c.ClientIP()), articleID, time.Now())
		m.ReadAdmitted(allowed)
		if !allowed {
			return
		}

		var readerID *string
		if authenticated {
			readerID = &userID
		}
		sink.LogRead(articleID, readerID)
	}
}
