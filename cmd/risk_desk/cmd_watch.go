package main

import (
	"context"
	"errors"
	"time"

	"risk_desk/internal/economy"
	"risk_desk/internal/telegram"
	"risk_desk/internal/watcher"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "watch",
		Short:       "Poll economic indicators and alert on Telegram when systemic risk rises",
		Annotations: map[string]string{notifyAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tg, err := telegram.NewClient(telegram.Options{
				Token:  a.cfg.Credentials.TelegramBotToken,
				ChatID: a.cfg.Credentials.TelegramChatID,
			}, a.log)
			if err != nil {
				return err
			}

			w := watcher.New(watcher.Options{
				Provider:   a.economyProvider(),
				Notifier:   tg,
				Registry:   a.registry(),
				Indicators: a.cfg.Watch.Indicators,
				Companies:  a.cfg.Watch.Companies,
				AlertLevel: economy.ParseSystemicLevel(a.cfg.Watch.AlertLevel),
				Suppress:   a.cfg.Watch.SuppressWindow(),
				Interval:   a.cfg.Watch.PollInterval(),
				Version:    a.version,
			}, a.log)

			go func() {
				if err := tg.Listen(ctx, w.HandleCommand); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error().Err(err).Msg("Telegram listener stopped")
				}
			}()

			a.log.Info().
				Str("version", a.version).
				Dur("interval", a.cfg.Watch.PollInterval()).
				Str("alert_level", a.cfg.Watch.AlertLevel).
				Msg("Risk watcher initialized")

			w.SendStartupNotification(ctx)
			w.Run(ctx)

			// ctx is already cancelled; give the goodbye its own deadline.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			w.SendShutdownNotification(shutdownCtx)
			return nil
		},
	}
}
