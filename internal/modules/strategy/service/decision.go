package service

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

const (
	priceDecimals = 5
	idDecimals    = 4
)

// Outcome: почему по свече был или не был сигнал.
type Outcome int

const (
	OutcomeNotReady Outcome = iota
	OutcomeFiltered
	OutcomeNoDirection
	OutcomeTrendBlocked
	OutcomeSignal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFiltered:
		return "filters failed"
	case OutcomeNoDirection:
		return "filters passed, no direction"
	case OutcomeTrendBlocked:
		return "blocked by trend filter"
	case OutcomeSignal:
		return "signal"
	default:
		return "indicators not ready"
	}
}

// Thresholds: фильтры правила входа; все сравнения строгие.
type Thresholds struct {
	ADXMin        float64
	VolatilityMin float64
	VolumeRatio   float64
	CCIAbsMin     float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{ADXMin: 20, VolatilityMin: 0.0015, VolumeRatio: 1, CCIAbsMin: 100}
}

type EngineConfig struct {
	Thresholds    Thresholds
	TakeProfitPct float64
	StopLossPct   float64
	TrendFilter   bool
}

// Decision: результат Evaluate.
type Decision struct {
	Outcome Outcome
	Side    models.Side
	Reason  string
}

// Trend: EMA200 старшего таймфрейма относительно его последнего close.
type Trend struct {
	Ready  bool
	Close  float64
	EMA200 float64
}

// Engine: правило входа + расчёт TP/SL. Без состояния, безопасен для конкурентного использования.
type Engine struct {
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate проверяет фильтры и направление по строке индикаторов.
func (e *Engine) Evaluate(row models.IndicatorRow) Decision {
	th := e.cfg.Thresholds

	switch {
	case !(row.ADX14 > th.ADXMin):
		return Decision{Outcome: OutcomeFiltered, Reason: fmt.Sprintf("ADX=%.2f <= %.2f", row.ADX14, th.ADXMin)}
	case !(row.Volatility > th.VolatilityMin):
		return Decision{Outcome: OutcomeFiltered, Reason: fmt.Sprintf("volatility=%.5f <= %.5f", row.Volatility, th.VolatilityMin)}
	case !(row.Volume > row.VolumeMean50*th.VolumeRatio):
		return Decision{Outcome: OutcomeFiltered, Reason: fmt.Sprintf("volume=%.4f <= mean50=%.4f x%.2f", row.Volume, row.VolumeMean50, th.VolumeRatio)}
	case !(math.Abs(row.CCI20) > th.CCIAbsMin):
		return Decision{Outcome: OutcomeFiltered, Reason: fmt.Sprintf("|CCI|=%.2f <= %.2f", math.Abs(row.CCI20), th.CCIAbsMin)}
	}

	reason := fmt.Sprintf("ADX=%.2f vol=%.5f CCI=%.2f EMA50=%.6f EMA200=%.6f close=%.6f",
		row.ADX14, row.Volatility, row.CCI20, row.EMA50, row.EMA200, row.Close)

	switch {
	case row.EMA50 > row.EMA200 && row.Close > row.EMA200:
		return Decision{Outcome: OutcomeSignal, Side: models.SideLong, Reason: reason}
	case row.EMA50 < row.EMA200 && row.Close < row.EMA200:
		return Decision{Outcome: OutcomeSignal, Side: models.SideShort, Reason: reason}
	default:
		return Decision{Outcome: OutcomeNoDirection, Reason: reason}
	}
}

// ApplyTrend гасит сигнал против тренда старшего таймфрейма, если фильтр включён.
func (e *Engine) ApplyTrend(d Decision, tr Trend) Decision {
	if !e.cfg.TrendFilter || d.Outcome != OutcomeSignal {
		return d
	}
	if !tr.Ready {
		return Decision{Outcome: OutcomeTrendBlocked, Reason: "trend window not ready"}
	}
	aligned := (d.Side == models.SideLong && tr.Close > tr.EMA200) ||
		(d.Side == models.SideShort && tr.Close < tr.EMA200)
	if !aligned {
		return Decision{
			Outcome: OutcomeTrendBlocked,
			Side:    d.Side,
			Reason:  fmt.Sprintf("%s against trend: close=%.6f EMA200=%.6f", d.Side, tr.Close, tr.EMA200),
		}
	}
	return d
}

// Targets считает TP/SL от цены входа, округляя до 5 знаков (половина от нуля).
func (e *Engine) Targets(entry float64, side models.Side) (tp, sl float64, err error) {
	take := e.cfg.TakeProfitPct / 100
	stop := e.cfg.StopLossPct / 100

	switch side {
	case models.SideLong:
		tp = entry * (1 + take)
		sl = entry * (1 - stop)
	case models.SideShort:
		tp = entry * (1 - take)
		sl = entry * (1 + stop)
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDirection, side)
	}
	return RoundPrice(tp, priceDecimals), RoundPrice(sl, priceDecimals), nil
}

// BuildSignal собирает сигнал по закрытой свече.
func (e *Engine) BuildSignal(symbol, timeframe string, side models.Side, entry float64, reason string, at time.Time) (models.Signal, error) {
	tp, sl, err := e.Targets(entry, side)
	if err != nil {
		return models.Signal{}, err
	}
	return models.Signal{
		ID:         SignalID(symbol, timeframe, entry),
		Symbol:     symbol,
		Timeframe:  timeframe,
		Side:       side,
		EntryPrice: entry,
		TakeProfit: tp,
		StopLoss:   sl,
		Reason:     reason,
		CreatedAt:  at,
	}, nil
}

// SignalID: ключ дедупликации: символ, таймфрейм и цена, округлённая до 4 знаков.
func SignalID(symbol, timeframe string, price float64) string {
	return fmt.Sprintf("%s-%s-%s", symbol, timeframe, decimal.NewFromFloat(price).Round(idDecimals).String())
}

// RoundPrice округляет до places знаков, половину от нуля.
func RoundPrice(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
