package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/hookbot/core/config"
	"github.com/m3rciful/hookbot/core/logger"
	"github.com/m3rciful/hookbot/core/telegram"
)

// RunOptions controls the behaviour of Run.
type RunOptions struct {
	Config  *coreconfig.Config
	Handler http.Handler

	// Webhook, when set, is registered with Telegram once the listener is up.
	Webhook *telegram.WebhookOptions
	// Listener overrides the configured listen address.
	Listener net.Listener

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes the running listener to lifecycle hooks.
type Runtime struct {
	Addr string
}

// Run serves the webhook until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("hook: nil config provided")
	}
	if opts.Handler == nil {
		return fmt.Errorf("hook: nil handler provided")
	}
	cfg := opts.Config

	ln := opts.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", cfg.ListenAddr())
		if err != nil {
			return fmt.Errorf("hook: listen %s: %w", cfg.ListenAddr(), err)
		}
	}
	rt := Runtime{Addr: ln.Addr().String()}

	srv := &http.Server{
		Handler:           opts.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Limits.RequestTimeout,
		WriteTimeout:      cfg.Limits.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	tlsOn := cfg.Webhook.CertFile != "" && cfg.Webhook.KeyFile != ""
	go func() {
		var err error
		if tlsOn {
			err = srv.ServeTLS(ln, cfg.Webhook.CertFile, cfg.Webhook.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.HTTP.Info("webhook listener",
		slog.String("event", "mode"),
		slog.String("mode", "webhook"),
		slog.String("listen", rt.Addr),
		slog.String("path", cfg.Webhook.Path),
		slog.String("public_url", cfg.Webhook.URL),
		slog.Bool("tls", tlsOn),
	)

	shutdown := func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Limits.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(stopCtx)
	}

	if opts.Webhook != nil {
		if err := telegram.SetWebhook(ctx, *opts.Webhook); err != nil {
			_ = shutdown()
			return err
		}
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			_ = shutdown()
			return err
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("hook: serve: %w", err)
		}
	}

	start := time.Now()
	if err := shutdown(); err != nil {
		logger.HTTP.Warn("shutdown incomplete",
			slog.String("event", "shutdown"),
			slog.String("status", "timeout"),
			slog.String("err", err.Error()),
		)
	} else {
		logger.HTTP.Info("listener stopped",
			slog.String("event", "shutdown"),
			slog.String("status", "ok"),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.Background(), rt); err != nil {
			return err
		}
	}
	return runErr
}
