package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Spok95/estimate-bot/internal/config"
	"github.com/Spok95/estimate-bot/internal/infra/logger"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "estimate-bot",
	Short: "Telegram-бот предварительной оценки стоимости работ",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env необязателен
		if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/example.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd)
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.App.Env), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
