package binance

import (
	"signal_bot/internal/modules/binance/service"
	"signal_bot/internal/runner"

	"go.uber.org/fx"
)

// Module поднимает клиент рыночных данных Binance futures.
func Module() fx.Option {
	return fx.Module("binance",
		fx.Provide(
			service.NewClient,
			// Адаптер: *service.Client -> runner.MarketData
			func(c *service.Client) runner.MarketData {
				return c
			},
		),
	)
}
