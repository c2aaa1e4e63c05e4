package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
	"github.com/relayforge/relayforge/pkg/telegram"
)

func init() {
	var publicURL string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the Telegram webhook for this deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			base := publicURL
			if base == "" {
				base = cfg.Server.PublicURL
			}
			if base == "" {
				return rferrors.NewConfigError("server.public_url", "public URL is required to register a webhook")
			}

			client := telegram.NewClient(&cfg.Telegram, slog.Default())
			if !client.IsConfigured() {
				return rferrors.NewConfigError("telegram.bot_token", "bot token is required to register a webhook")
			}

			url := strings.TrimRight(base, "/") + "/telegram/webhook"

			ctx, cancel := cmdContext(30 * time.Second)
			defer cancel()
			if err := client.SetWebhook(ctx, url, cfg.Telegram.WebhookSecret); err != nil {
				return err
			}

			fmt.Printf("Webhook registered: %s\n", url)
			return nil
		},
	}

	cmd.Flags().StringVar(&publicURL, "url", "", "public base URL (overrides server.public_url)")
	rootCmd.AddCommand(cmd)
}
