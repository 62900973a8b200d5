package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

type PipelineConfig struct {
	Symbol         string
	Timeframe      string
	TrendTimeframe string

	WindowSize     int
	SentSignalsCap int

	BackfillLimit      int
	MaxBackfillRetries int
	BackfillRetryDelay time.Duration
	ReconnectDelay     time.Duration
	ReconnectMaxDelay  time.Duration
}

// Outcome: последнее решение по символу, для /status и хартбита.
type Outcome struct {
	Text string
	At   time.Time
}

// Pipeline: стример одного символа: BACKFILLING -> WARMING_UP -> LIVE <-> RECONNECTING, ABORTED терминален.
// Окно и lastProcessed принадлежат горутине Run; снаружи меняется только флаг позиции в gate.
type Pipeline struct {
	cfg      PipelineConfig
	md       MarketData
	notifier Notifier
	engine   *service.Engine
	journal  Journal
	health   HealthReporter

	gate   *service.Gate
	window *service.Window
	trend  *service.Window

	lastProcessed time.Time
	reconnected   bool
	announced     bool

	state atomic.Int32

	mu      sync.RWMutex
	outcome Outcome

	now func() time.Time
}

func NewPipeline(cfg PipelineConfig, md MarketData, notifier Notifier, engine *service.Engine, journal Journal, health HealthReporter) *Pipeline {
	if cfg.MaxBackfillRetries < 1 {
		cfg.MaxBackfillRetries = 1
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectDelay
	}
	if journal == nil {
		journal = nopJournal{}
	}
	if health == nil {
		health = nopHealth{}
	}
	return &Pipeline{
		cfg:      cfg,
		md:       md,
		notifier: notifier,
		engine:   engine,
		journal:  journal,
		health:   health,
		gate:     service.NewGate(cfg.SentSignalsCap),
		now:      time.Now,
	}
}

func (p *Pipeline) Symbol() string              { return p.cfg.Symbol }
func (p *Pipeline) Gate() *service.Gate         { return p.gate }
func (p *Pipeline) State() models.PipelineState { return models.PipelineState(p.state.Load()) }

func (p *Pipeline) LastOutcome() Outcome {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.outcome
}

// Run крутит автомат до отмены ctx. Ошибка возвращается только при ABORTED
// (исчерпан бэкфилл при первом запуске).
func (p *Pipeline) Run(ctx context.Context) error {
	delay := p.cfg.ReconnectDelay

	for {
		if err := p.backfill(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !p.reconnected {
				p.setState(models.StateAborted)
				return err
			}
			// после потери потока продолжаем переподключаться
			logger.Warn("[PIPE] %s backfill after reconnect failed: %v", p.cfg.Symbol, err)
		} else {
			err = p.live(ctx, &delay)
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("[PIPE] %s live stream lost: %v", p.cfg.Symbol, err)
		}

		p.reconnected = true
		p.setState(models.StateReconnecting)
		metrics.ReconnectsTotal.WithLabelValues(p.cfg.Symbol).Inc()
		logger.Info("[PIPE] %s reconnecting in %s", p.cfg.Symbol, delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil
		}
		delay *= 2
		if delay > p.cfg.ReconnectMaxDelay {
			delay = p.cfg.ReconnectMaxDelay
		}
	}
}

func (p *Pipeline) backfill(ctx context.Context) error {
	p.setState(models.StateBackfilling)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxBackfillRetries; attempt++ {
		candles, trend, err := p.fetch(ctx)
		if err == nil {
			p.warmUp(candles, trend)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		metrics.BackfillFailuresTotal.WithLabelValues(p.cfg.Symbol).Inc()
		logger.Warn("[PIPE] %s backfill attempt %d/%d failed: %v", p.cfg.Symbol, attempt, p.cfg.MaxBackfillRetries, err)

		if attempt < p.cfg.MaxBackfillRetries {
			if err := sleepCtx(ctx, p.cfg.BackfillRetryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", models.ErrBackfillExhausted, p.cfg.Symbol, p.cfg.MaxBackfillRetries, lastErr)
}

func (p *Pipeline) fetch(ctx context.Context) ([]models.Candle, []models.Candle, error) {
	candles, err := p.fetchTimeframe(ctx, p.cfg.Timeframe)
	if err != nil {
		return nil, nil, err
	}
	if p.cfg.TrendTimeframe == "" {
		return candles, nil, nil
	}
	trend, err := p.fetchTimeframe(ctx, p.cfg.TrendTimeframe)
	if err != nil {
		return nil, nil, err
	}
	return candles, trend, nil
}

func (p *Pipeline) fetchTimeframe(ctx context.Context, tf string) ([]models.Candle, error) {
	candles, err := p.md.FetchHistory(ctx, p.cfg.Symbol, tf, p.cfg.BackfillLimit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: empty %s backfill", models.ErrStaleData, tf)
	}
	return candles, nil
}

// warmUp пересобирает окна из бэкфилла: после обрыва в старом окне может быть дыра.
func (p *Pipeline) warmUp(candles, trend []models.Candle) {
	p.setState(models.StateWarmingUp)

	p.window = service.NewWindow(p.cfg.WindowSize)
	rejected := fillWindow(p.window, candles)
	if rejected > 0 {
		logger.Debug("[PIPE] %s backfill: %d out-of-order candles dropped", p.cfg.Symbol, rejected)
	}
	if last, ok := p.window.Last(); ok && last.OpenTime.After(p.lastProcessed) {
		p.lastProcessed = last.OpenTime
	}

	if p.cfg.TrendTimeframe != "" {
		p.trend = service.NewWindow(p.cfg.WindowSize)
		fillWindow(p.trend, trend)
	}

	if _, ready := service.Compute(p.window.Snapshot()); !ready {
		logger.Warn("[PIPE] %s indicators not ready after backfill (%d candles), will retry on live candles",
			p.cfg.Symbol, p.window.Len())
	}
}

func fillWindow(w *service.Window, candles []models.Candle) (rejected int) {
	for _, c := range candles {
		if err := w.Append(c); err != nil {
			rejected++
		}
	}
	return rejected
}

func (p *Pipeline) live(ctx context.Context, delay *time.Duration) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := p.md.SubscribeLive(subCtx, p.cfg.Symbol, p.cfg.Timeframe)
	if err != nil {
		return err
	}
	var trendEvents <-chan models.CandleEvent
	if p.cfg.TrendTimeframe != "" {
		trendEvents, err = p.md.SubscribeLive(subCtx, p.cfg.Symbol, p.cfg.TrendTimeframe)
		if err != nil {
			return err
		}
	}

	p.setState(models.StateLive)
	*delay = p.cfg.ReconnectDelay
	if !p.announced {
		p.announced = true
		p.notifier.ReportStatus(ctx, fmt.Sprintf("🟢 %s анализируется через WebSocket", p.cfg.Symbol))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: %s %s stream closed", models.ErrTransport, p.cfg.Symbol, p.cfg.Timeframe)
			}
			p.onCandle(ctx, ev)
		case ev, ok := <-trendEvents:
			if !ok {
				return fmt.Errorf("%w: %s %s stream closed", models.ErrTransport, p.cfg.Symbol, p.cfg.TrendTimeframe)
			}
			if ev.Closed {
				_ = p.trend.Append(ev.Candle)
			}
		}
	}
}

// onCandle: только закрытые свечи строго новее lastProcessed двигают состояние.
func (p *Pipeline) onCandle(ctx context.Context, ev models.CandleEvent) {
	if !ev.Closed {
		return
	}
	c := ev.Candle
	if !c.OpenTime.After(p.lastProcessed) {
		logger.Debug("[PIPE] %s candle %s already processed", p.cfg.Symbol, c.OpenTime.Format(time.RFC3339))
		return
	}
	if err := p.window.Append(c); err != nil {
		logger.Debug("[PIPE] %s candle rejected: %v", p.cfg.Symbol, err)
		return
	}
	p.lastProcessed = c.OpenTime
	metrics.CandlesTotal.WithLabelValues(p.cfg.Symbol).Inc()
	p.health.TouchCandle(p.cfg.Symbol, c.OpenTime)

	span, spanCtx := tracing.StartSpan(ctx, "pipeline.candle", p.cfg.Symbol)
	err := p.evaluate(spanCtx)
	tracing.FinishSpan(span, err)
	if err != nil {
		logger.Error("[PIPE] %s: %v", p.cfg.Symbol, err)
	}
}

func (p *Pipeline) evaluate(ctx context.Context) error {
	row, ready := service.Compute(p.window.Snapshot())
	if !ready {
		p.record(service.OutcomeNotReady.String())
		return nil
	}

	d := p.engine.Evaluate(row)
	if p.trend != nil {
		d = p.engine.ApplyTrend(d, p.trendState())
	}
	if d.Outcome != service.OutcomeSignal {
		p.record(fmt.Sprintf("%s: %s", d.Outcome, d.Reason))
		logger.Debug("[PIPE] %s %s: %s", p.cfg.Symbol, d.Outcome, d.Reason)
		return nil
	}

	sig, err := p.engine.BuildSignal(p.cfg.Symbol, p.cfg.Timeframe, d.Side, row.Close, d.Reason, p.now())
	if err != nil {
		return err
	}

	verdict := p.gate.Admit(sig)
	if verdict != service.Admitted {
		p.record(fmt.Sprintf("%s %s: %s", sig.Side, sig.ID, verdict))
		metrics.SignalsSuppressedTotal.WithLabelValues(p.cfg.Symbol, verdict.String()).Inc()
		logger.Debug("[PIPE] %s %s %s", p.cfg.Symbol, sig.ID, verdict)
		return nil
	}

	p.record(fmt.Sprintf("signal %s %s", sig.Side, sig.ID))
	metrics.SignalsTotal.WithLabelValues(p.cfg.Symbol, string(sig.Side)).Inc()
	logger.Info("[PIPE] %s signal %s entry=%v tp=%v sl=%v (%s)", p.cfg.Symbol, sig.Side, sig.EntryPrice, sig.TakeProfit, sig.StopLoss, sig.Reason)

	if err := p.journal.RecordSignal(ctx, sig); err != nil {
		logger.Warn("[PIPE] %s journal: %v", p.cfg.Symbol, err)
	}
	// id уже помечен отправленным: при сбое доставки повтора не будет (at-most-once)
	if err := p.notifier.Notify(ctx, sig); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(p.cfg.Symbol).Inc()
		return err
	}
	return nil
}

func (p *Pipeline) trendState() service.Trend {
	candles := p.trend.Snapshot()
	if len(candles) == 0 {
		return service.Trend{}
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	ema, ok := service.EMA(closes, service.EMASlowPeriod)
	return service.Trend{Ready: ok, Close: closes[len(closes)-1], EMA200: ema}
}

func (p *Pipeline) record(text string) {
	p.mu.Lock()
	p.outcome = Outcome{Text: text, At: p.now()}
	p.mu.Unlock()
}

func (p *Pipeline) setState(s models.PipelineState) {
	prev := models.PipelineState(p.state.Swap(int32(s)))
	metrics.PipelineState.WithLabelValues(p.cfg.Symbol).Set(float64(s))
	p.health.SetSymbolState(p.cfg.Symbol, s)
	if prev != s {
		logger.Info("[PIPE] %s %s -> %s", p.cfg.Symbol, prev, s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
