package hook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/hookbot/core/hook/middleware"
	"github.com/m3rciful/hookbot/core/logger"
)

// Handler runs one delivery body and returns the status code.
type Handler interface {
	Handle(ctx context.Context, body []byte) int
}

// ServerOptions configures NewRouter.
type ServerOptions struct {
	Path         string
	SecretToken  string
	MaxInFlight  int64
	MaxBodyBytes int64
	Handler      Handler
	// Health adds fields to the /healthz response.
	Health func() gin.H
}

// NewRouter builds the webhook HTTP handler.
func NewRouter(opts ServerOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), middleware.Recover())

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if opts.Health != nil {
			for k, v := range opts.Health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})

	path := opts.Path
	if path == "" {
		path = "/hook"
	}
	r.POST(path,
		middleware.SecretToken(opts.SecretToken),
		middleware.InFlight(opts.MaxInFlight),
		deliveryHandler(opts.Handler, opts.MaxBodyBytes),
	)
	return r
}

func deliveryHandler(h Handler, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reader io.Reader = c.Request.Body
		if maxBody > 0 {
			reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			code := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				code = http.StatusRequestEntityTooLarge
			}
			logger.Warn(c.Request.Context(), "http", "body.read",
				slog.String("status", "rejected"),
				slog.Int("http_code", code),
				slog.String("err", err.Error()),
			)
			c.AbortWithStatus(code)
			return
		}
		c.Status(h.Handle(c.Request.Context(), body))
	}
}
