package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/hookbot/core/app"
	corecmd "github.com/m3rciful/hookbot/core/cmd"
	"github.com/m3rciful/hookbot/core/logger"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hookbot",
		Short:         "Telegram webhook bot answering canned questions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().String("config", "", "Config file path (default $CONFIG_PATH or config.yaml).")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newWebhookCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runnerOptions(cmd *cobra.Command) corecmd.Options {
	path, _ := cmd.Flags().GetString("config")
	return corecmd.Options{
		ConfigPath:        path,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
	}
}

// loadConfig resolves and loads the config for one-shot commands and starts
// the logger; the returned func flushes it.
func loadConfig(cmd *cobra.Command) (*app.Config, func(), error) {
	path, err := corecmd.ResolveConfigPath(runnerOptions(cmd))
	if err != nil {
		return nil, nil, err
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitLogger(&cfg.Config); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, func() { _ = logger.Shutdown() }, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
