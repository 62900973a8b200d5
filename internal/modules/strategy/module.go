package strategy

import (
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func NewEngine(cfg *config.Config) *service.Engine {
	s := cfg.Strategy
	return service.NewEngine(service.EngineConfig{
		Thresholds: service.Thresholds{
			ADXMin:        s.ADXMin,
			VolatilityMin: s.VolatilityMin,
			VolumeRatio:   s.VolumeRatio,
			CCIAbsMin:     s.CCIAbsMin,
		},
		TakeProfitPct: s.TakeProfitPct,
		StopLossPct:   s.StopLossPct,
		TrendFilter:   s.TrendFilter && s.TrendTimeframe != "",
	})
}

// Module отдаёт решающий движок правила входа.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewEngine,
		),
	)
}
