package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/m3rciful/hookbot/core/app"
	corecmd "github.com/m3rciful/hookbot/core/cmd"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Telegram webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gin.SetMode(gin.ReleaseMode)
			opts := runnerOptions(cmd)
			opts.LoadConfig = func(path string) (corecmd.ConfigCarrier, error) {
				return app.LoadConfig(path)
			}
			opts.Bootstrap = func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.App, error) {
				return app.Bootstrap(ctx, cfg.(*app.Config))
			}
			return corecmd.Run(opts)
		},
	}
}
