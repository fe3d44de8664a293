package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/hookbot/core/logger"
	"github.com/m3rciful/hookbot/core/telegram/netutil"
)

// WebhookOptions describes the setWebhook call.
type WebhookOptions struct {
	Token          string
	APIURL         string
	PublicURL      string
	CertFile       string
	SecretToken    string
	MaxConnections int
	DropPending    bool
	Client         *http.Client
}

// newAPIBot builds an offline telebot client used only for Bot API calls.
func newAPIBot(opts WebhookOptions) (*tele.Bot, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("telegram: empty token")
	}
	client := opts.Client
	if client == nil {
		client = BuildHTTPClient(ClientOptions{Retries: 2})
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   opts.Token,
		URL:     opts.APIURL,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot client: %w", err)
	}
	return bot, nil
}

// SetWebhook points the bot at PublicURL, delivering message updates only.
func SetWebhook(ctx context.Context, opts WebhookOptions) error {
	if strings.TrimSpace(opts.PublicURL) == "" {
		return fmt.Errorf("telegram: empty webhook url")
	}
	bot, err := newAPIBot(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	hook := &tele.Webhook{
		MaxConnections: opts.MaxConnections,
		AllowedUpdates: []string{"message"},
		DropUpdates:    opts.DropPending,
		SecretToken:    opts.SecretToken,
		Endpoint: &tele.WebhookEndpoint{
			PublicURL: opts.PublicURL,
			Cert:      opts.CertFile,
		},
	}
	if err := bot.SetWebhook(hook); err != nil {
		logger.Error(ctx, "tg", "webhook.set",
			slog.String("status", "fail"),
			slog.String("public_url", opts.PublicURL),
			slog.String("err", netutil.RedactToken(err.Error())),
		)
		return fmt.Errorf("telegram: setWebhook: %s", netutil.RedactToken(err.Error()))
	}
	logger.Info(ctx, "tg", "webhook.set",
		slog.String("status", "ok"),
		slog.String("public_url", opts.PublicURL),
		slog.Bool("custom_cert", opts.CertFile != ""),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// DeleteWebhook removes the webhook registration.
func DeleteWebhook(ctx context.Context, opts WebhookOptions) error {
	bot, err := newAPIBot(opts)
	if err != nil {
		return err
	}
	if err := bot.RemoveWebhook(opts.DropPending); err != nil {
		logger.Error(ctx, "tg", "webhook.delete",
			slog.String("status", "fail"),
			slog.String("err", netutil.RedactToken(err.Error())),
		)
		return fmt.Errorf("telegram: deleteWebhook: %s", netutil.RedactToken(err.Error()))
	}
	logger.Info(ctx, "tg", "webhook.delete", slog.String("status", "ok"))
	return nil
}
