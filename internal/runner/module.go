package runner

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"
)

type managerIn struct {
	fx.In

	Config    *config.Config
	Engine    *service.Engine
	Market    MarketData
	Notifier  Notifier
	Journal   Journal
	Positions PositionStore
	Health    HealthReporter
}

func newManager(in managerIn) *Manager {
	return NewManager(ManagerParams{
		Config:    in.Config,
		Engine:    in.Engine,
		Market:    in.Market,
		Notifier:  in.Notifier,
		Journal:   in.Journal,
		Positions: in.Positions,
		Health:    in.Health,
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			newManager,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					// ctx хука живёт только на время старта
					m.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return m.Stop(ctx)
				},
			})
		}),
	)
}
