package middleware

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/aq2208/gorder-bridge/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logging returns a Gin middleware that logs each request and injects a slog.Logger into the context.
// Successful probes log at debug so scrapes do not flood the log.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(), // may be empty if no route matched
			"remote", c.ClientIP(),
		)
		logging.With(c, l)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Debug("http_request", attrs...)
		}
	}
}
