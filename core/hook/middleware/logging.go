package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m3rciful/hookbot/core/logger"
)

const (
	ridKey    = "rid"
	ridHeader = "X-Request-ID"
)

// Logger assigns a request id, stores it with the component logger in the
// request context and logs one line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := logger.SanitizeLimit(c.GetHeader(ridHeader), 64)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ridKey, rid)
		c.Header(ridHeader, rid)

		ctx := logger.WithRID(c.Request.Context(), rid)
		ctx = logger.WithLogger(ctx, logger.HTTP)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		code := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case code >= 500:
			level = slog.LevelError
		case code >= 400:
			level = slog.LevelWarn
		}
		logger.LogEvent(ctx, logger.HTTP, level, "http.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("http_code", code),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
}
