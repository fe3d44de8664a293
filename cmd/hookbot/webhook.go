package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/hookbot/core/app"
	"github.com/m3rciful/hookbot/core/telegram"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	var dropPending bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Register webhook.url with Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer done()
			if cfg.Webhook.URL == "" {
				return fmt.Errorf("webhook.url is not configured")
			}
			opts := app.WebhookOptions(cfg)
			opts.DropPending = dropPending
			return telegram.SetWebhook(commandContext(cmd), opts)
		},
	}
	set.Flags().BoolVar(&dropPending, "drop-pending", false, "Drop updates queued while no webhook was set.")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer done()
			opts := app.WebhookOptions(cfg)
			opts.DropPending = dropPending
			return telegram.DeleteWebhook(commandContext(cmd), opts)
		},
	}
	del.Flags().BoolVar(&dropPending, "drop-pending", false, "Also drop pending updates.")

	cmd.AddCommand(set, del)
	return cmd
}
