package journal

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/journal/service"
	"signal_bot/internal/runner"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
)

// NewJournal: Postgres-журнал, если пул поднят, иначе Nop.
func NewJournal(lc fx.Lifecycle, tm *db.PgTxManager) runner.Journal {
	if tm == nil {
		logger.Info("[BOOT] db_dsn is empty, signal journal disabled")
		return service.Nop{}
	}

	j := service.NewJournal(tm)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := j.EnsureSchema(ctx); err != nil {
				logger.Error("[BOOT] journal schema: %v", err)
			}
			return nil
		},
	})
	return j
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			NewJournal,
		),
	)
}
