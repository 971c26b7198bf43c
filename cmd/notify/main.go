// notify sends the Telegram message whose inline button opens the Mini
// App for one treatment.
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/megusto0/tgintegration/internal/config"
	"github.com/megusto0/tgintegration/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "notify <cid> <summary>",
	Short: "Send a Telegram message with a WebApp edit button",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.TGChatID == 0 {
			return errors.New("TG_CHAT_ID is not configured")
		}

		client, err := telegram.NewClient(cfg.TGToken)
		if err != nil {
			return err
		}

		webAppURL := fmt.Sprintf("%s/webapp/?cid=%s", cfg.AppBaseURL, url.QueryEscape(args[0]))
		return client.SendWebAppButton(cmd.Context(), cfg.TGChatID, args[1], webAppURL)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
