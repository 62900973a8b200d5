package runner

import (
	"context"
	"time"

	"signal_bot/internal/models"
)

// MarketData: история и live-поток свечей. Общий для всех пайплайнов.
type MarketData interface {
	FetchHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	// SubscribeLive: канал закрывается при обрыве или отмене ctx.
	SubscribeLive(ctx context.Context, symbol, timeframe string) (<-chan models.CandleEvent, error)
}

// Notifier: доставка сигналов, статусов и нажатий пользователя.
type Notifier interface {
	Notify(ctx context.Context, sig models.Signal) error
	ReportStatus(ctx context.Context, text string)
	Actions() <-chan models.UserAction
}

// Journal: журнал сигналов и отметок, best effort.
type Journal interface {
	RecordSignal(ctx context.Context, sig models.Signal) error
	RecordAction(ctx context.Context, action models.UserAction) error
}

// PositionStore переживает рестарт: флаги позиций по символам.
type PositionStore interface {
	SetActive(ctx context.Context, symbol string, active bool) error
	IsActive(ctx context.Context, symbol string) (bool, error)
}

// HealthReporter получает состояние пайплайнов для health-эндпоинтов.
type HealthReporter interface {
	SetSymbolState(symbol string, state models.PipelineState)
	TouchCandle(symbol string, openTime time.Time)
}

type nopJournal struct{}

func (nopJournal) RecordSignal(context.Context, models.Signal) error     { return nil }
func (nopJournal) RecordAction(context.Context, models.UserAction) error { return nil }

type nopHealth struct{}

func (nopHealth) SetSymbolState(string, models.PipelineState) {}
func (nopHealth) TouchCandle(string, time.Time)               {}
