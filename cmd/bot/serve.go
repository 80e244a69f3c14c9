package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/estimate-bot/internal/bot"
	"github.com/Spok95/estimate-bot/internal/command"
	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	httpx "github.com/Spok95/estimate-bot/internal/infra/http"
	"github.com/Spok95/estimate-bot/internal/infra/natsx"
	"github.com/Spok95/estimate-bot/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить бота и HTTP-сервер",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		log.Info("catalog loaded", "path", cfg.Catalog.Path, "entries", cat.Len())

		st, err := openStorage(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.close()

		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		api.Debug = cfg.App.Env == "dev"
		log.Info("authorized", "bot", api.Self.UserName)

		notifiers := notify.Fanout{
			{Name: "telegram", Notifier: bot.NewOperatorNotifier(api, cfg.Telegram.AdminChatID)},
		}
		if cfg.NATS.URL != "" {
			pub, err := natsx.Connect(cfg.NATS.URL, "estimate-bot", cfg.NATS.Subject)
			if err != nil {
				return err
			}
			defer pub.Close()
			notifiers = append(notifiers, notify.Named{Name: "nats", Notifier: pub})
			log.Info("nats connected", "subject", cfg.NATS.Subject)
		}

		ctrl := conversation.New(cat, cfg.Catalog.PageSize, st.sessions, st.estimates, notifiers, log)

		srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, ctrl, log)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

		b := bot.New(api, log, ctrl, st.estimates, cfg.Telegram.AdminChatID, cfg.Telegram.Workers)
		for _, e := range cat.Entries() {
			b.Preload(command.SelectServiceData(e.Name))
		}

		err = b.Run(ctx, cfg.Telegram.PollTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)

		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("graceful shutdown complete")
		return nil
	},
}
