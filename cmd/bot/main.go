package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"signal_bot/internal/modules/binance"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/journal"
	"signal_bot/internal/modules/positions"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/strategy"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const (
	stopTimeout   = 15 * time.Second
	reportTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Init(cfg.Service.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		logger.Fatal("init tracer: %v", err)
	}
	defer closeTracer()

	logger.Info("[BOOT] effective config:\n%s", cfg.Redacted())

	var notifier runner.Notifier
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.InfoLogger}
		}),
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(cfg),
		strategy.Module(),
		binance.Module(),
		postgres.Module(),
		journal.Module(),
		positions.Module(),
		health.Module(),
		telegram.Module(),
		runner.Module(),
		fx.Populate(&notifier),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		reportCtx, reportCancel := context.WithTimeout(context.Background(), reportTimeout)
		runner.ReportFatal(reportCtx, notifier, err)
		reportCancel()
		logger.Fatal("start app: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("[STOP] signal %s", s)
	case <-app.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("[STOP] %v", err)
	}
}
