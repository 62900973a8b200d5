package telegram

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
)

type result struct {
	fx.Out

	Notifier runner.Notifier
	Telegram *service.Telegram
}

// NewNotifier: Telegram, если задан токен, иначе уведомления только в лог.
func NewNotifier(cfg *config.Config) (result, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is empty, signals go to log only")
		return result{Notifier: service.NewLogNotifier()}, nil
	}
	t, err := service.NewTelegram(cfg)
	if err != nil {
		return result{}, err
	}
	return result{Notifier: t, Telegram: t}, nil
}

type startParams struct {
	fx.In

	Lc       fx.Lifecycle
	Telegram *service.Telegram
	Manager  *runner.Manager
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewNotifier,
		),
		// Запуск long polling через Lifecycle
		fx.Invoke(
			func(p startParams) {
				if p.Telegram == nil {
					return
				}
				t := p.Telegram
				t.SetStatusProvider(p.Manager)
				p.Lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						t.Start(context.Background())
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
