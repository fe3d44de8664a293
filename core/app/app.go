package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hookbot/core/bootstrap"
	"github.com/m3rciful/hookbot/core/hook"
	"github.com/m3rciful/hookbot/core/logger"
	"github.com/m3rciful/hookbot/core/questions"
	"github.com/m3rciful/hookbot/core/stats"
	"github.com/m3rciful/hookbot/core/telegram"
	"github.com/m3rciful/hookbot/core/telegram/sender"
)

// App holds the wired components of a running bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	Registry *questions.Registry
	Tracker  *stats.Tracker
	Sender   *sender.Sender
	Pipeline *hook.Pipeline
}

// Deps lets tests swap the store-backed parts.
type Deps struct {
	Questions questions.Source
	Sessions  stats.Store
	Clock     func() time.Time
}

// Bootstrap connects to the database, seeds it and builds the App.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	var seeders []bootstrap.Seeder
	if cfg.Questions.SeedFile != "" {
		seeders = append(seeders, QuestionSeeder(cfg.Questions.SeedFile))
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Seeders:  seeders,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, Deps{
		Questions: questions.NewStore(res.DB),
		Sessions:  stats.NewPostgresStore(res.DB),
	})
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	a.db = res.DB
	return a, nil
}

// QuestionSeeder inserts the pairs of a YAML seed file into the questions table.
func QuestionSeeder(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		_, err := questions.SeedFromFile(ctx, questions.NewStore(db), path)
		return err
	})
}

// New wires registry, tracker, sender and pipeline and loads the registry.
func New(ctx context.Context, cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	reg := questions.NewRegistry(deps.Questions, questions.DefaultBuiltins(clock)...)
	if err := reg.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	tracker := stats.NewTracker(deps.Sessions, cfg.Sessions.Window)
	out := sender.New(sender.Options{
		Token:  cfg.Telegram.Token,
		APIURL: cfg.Telegram.APIURL,
		Client: telegram.BuildHTTPClient(telegram.ClientOptions{
			MaxConnsPerHost: int(cfg.Limits.MaxOutbound),
			Timeout:         cfg.Limits.RequestTimeout,
		}),
		MaxInFlight: cfg.Limits.MaxOutbound,
	})

	return &App{
		cfg:      cfg,
		Registry: reg,
		Tracker:  tracker,
		Sender:   out,
		Pipeline: &hook.Pipeline{
			Sessions: tracker,
			Answers:  questions.NewResolver(reg),
			Replies:  out,
			Now:      clock,
			Timeout:  cfg.Limits.RequestTimeout,
		},
	}, nil
}

// Handler returns the HTTP handler serving the webhook and /healthz.
func (a *App) Handler() *gin.Engine {
	return hook.NewRouter(hook.ServerOptions{
		Path:         a.cfg.Webhook.Path,
		SecretToken:  a.cfg.Telegram.SecretToken,
		MaxInFlight:  a.cfg.Limits.MaxInFlight,
		MaxBodyBytes: a.cfg.Limits.MaxBodyBytes,
		Handler:      a.Pipeline,
		Health: func() gin.H {
			sent, failed := a.Sender.Stats()
			return gin.H{
				"questions":    a.Registry.Len(),
				"replies_sent": sent,
				"replies_fail": failed,
			}
		},
	})
}

// WebhookOptions builds the setWebhook/deleteWebhook parameters from config.
func WebhookOptions(cfg *Config) telegram.WebhookOptions {
	return telegram.WebhookOptions{
		Token:          cfg.Telegram.Token,
		APIURL:         cfg.Telegram.APIURL,
		PublicURL:      cfg.Webhook.URL,
		CertFile:       cfg.Webhook.CertFile,
		SecretToken:    cfg.Telegram.SecretToken,
		MaxConnections: cfg.Webhook.MaxConnections,
	}
}

// RunOptions satisfies cmd.App.
func (a *App) RunOptions() (hook.RunOptions, error) {
	opts := hook.RunOptions{
		Config:  &a.cfg.Config,
		Handler: a.Handler(),
		OnStop: func(context.Context, hook.Runtime) error {
			sent, failed := a.Sender.Stats()
			logger.L.With("component", "app").Info("replies summary",
				slog.String("event", "summary"),
				slog.Uint64("sent", sent),
				slog.Uint64("failed", failed),
			)
			return a.Close()
		},
	}
	if a.cfg.Webhook.Register {
		w := WebhookOptions(a.cfg)
		opts.Webhook = &w
	}
	return opts, nil
}

// Reload re-reads the questions table.
func (a *App) Reload(ctx context.Context) error {
	return a.Registry.Reload(ctx)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
