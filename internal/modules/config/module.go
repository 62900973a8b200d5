package config

import "go.uber.org/fx"

// Module кладёт уже загруженный *Config в граф: логгер и трейсер нужны раньше fx.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
