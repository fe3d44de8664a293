package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/hookbot/core/logger"
)

// Recover turns a handler panic into a logged 500.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.HTTP.Error("panic recovered",
					slog.String("event", "http.panic"),
					slog.String("rid", c.GetString(ridKey)),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
