package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/m3rciful/hookbot/core/logger"
)

// SecretTokenHeader carries the secret configured with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// InFlight rejects requests with 503 once limit requests are being served.
func InFlight(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(limit)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			logger.Warn(c.Request.Context(), "http", "http.saturated",
				slog.String("status", "rejected"),
				slog.Int64("limit", limit),
			)
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// SecretToken rejects requests whose secret header does not match secret.
// An empty secret disables the check.
func SecretToken(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(SecretTokenHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			logger.Warn(c.Request.Context(), "http", "http.unauthorized",
				slog.String("status", "rejected"),
				slog.Bool("header_present", len(got) > 0),
			)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
