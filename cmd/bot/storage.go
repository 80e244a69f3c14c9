package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/estimate-bot/internal/config"
	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/infra/db"
	"github.com/Spok95/estimate-bot/internal/infra/sqlite"
)

// estimateRepo сохраняет сметы и отдаёт их за период.
type estimateRepo interface {
	Create(ctx context.Context, e estimates.Estimate) (estimates.Estimate, error)
	List(ctx context.Context, from, to time.Time) ([]estimates.Estimate, error)
}

type storage struct {
	sessions  dialog.Store
	estimates estimateRepo
	close     func()
}

// openStorage выбирает хранилище по storage.driver. Для postgres сначала
// применяются миграции.
func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		log.Info("db connected")
		return &storage{
			sessions:  dialog.NewRepo(pool),
			estimates: estimates.NewRepo(pool),
			close:     pool.Close,
		}, nil

	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite opened", "path", cfg.Storage.SQLitePath)
		return &storage{
			sessions:  st,
			estimates: st,
			close:     func() { _ = st.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn("memory storage: sessions and estimates are lost on restart")
		return &storage{
			sessions:  dialog.NewMemoryStore(),
			estimates: estimates.NewMemoryRepo(),
			close:     func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
