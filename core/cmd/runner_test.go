package cmd

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/hookbot/core/config"
	"github.com/m3rciful/hookbot/core/hook"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	reloads atomic.Int32
}

func (a *fakeApp) RunOptions() (hook.RunOptions, error) { return hook.RunOptions{}, nil }

func (a *fakeApp) Reload(context.Context) error {
	a.reloads.Add(1)
	return nil
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("HOOKBOT_CONFIG", "/etc/hookbot.yaml")
	if p, _ := ResolveConfigPath(Options{ConfigPath: "a.yaml", ConfigEnvVar: "HOOKBOT_CONFIG"}); p != "a.yaml" {
		t.Fatalf("flag path = %q", p)
	}
	if p, _ := ResolveConfigPath(Options{ConfigEnvVar: "HOOKBOT_CONFIG", DefaultConfigPath: "d.yaml"}); p != "/etc/hookbot.yaml" {
		t.Fatalf("env path = %q", p)
	}
	if p, _ := ResolveConfigPath(Options{ConfigEnvVar: "HOOKBOT_UNSET_VAR", DefaultConfigPath: "d.yaml"}); p != "d.yaml" {
		t.Fatalf("default path = %q", p)
	}
	if _, err := ResolveConfigPath(Options{ConfigEnvVar: "HOOKBOT_UNSET_VAR"}); err == nil {
		t.Fatal("expected error without any path")
	}
}

func TestRunWrapsHooksAndReloadsOnSIGHUP(t *testing.T) {
	app := &fakeApp{}
	var started, stopped bool
	err := Run(Options{
		ConfigPath:     "config.yaml",
		LoadConfig:     func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:      func(context.Context, ConfigCarrier) (App, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		Serve: func(ctx context.Context, opts hook.RunOptions) error {
			if err := opts.OnStart(ctx, hook.Runtime{Addr: "127.0.0.1:0"}); err != nil {
				return err
			}
			started = true
			if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
				return err
			}
			deadline := time.Now().Add(2 * time.Second)
			for app.reloads.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			stopped = true
			return opts.OnStop(ctx, hook.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !started || !stopped {
		t.Fatalf("started = %v, stopped = %v", started, stopped)
	}
	if app.reloads.Load() != 1 {
		t.Fatalf("reloads = %d", app.reloads.Load())
	}
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		ConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (App, error) { return nil, boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}
