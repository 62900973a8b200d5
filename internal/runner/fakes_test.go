package runner

import (
	"context"
	"sync"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rampCandle(i int, px, volume float64) models.Candle {
	return models.Candle{
		OpenTime: t0.Add(time.Duration(i) * time.Minute),
		Open:     px - 0.5,
		High:     px + 0.5,
		Low:      px - 0.5,
		Close:    px,
		Volume:   volume,
	}
}

// rampHistory: n свечей растущего рынка: 100, 101, ...
func rampHistory(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = rampCandle(i, 100+float64(i), 100)
	}
	return out
}

func closed(c models.Candle) models.CandleEvent {
	return models.CandleEvent{Symbol: "BTCUSDT", Timeframe: "1m", Candle: c, Closed: true}
}

type fakeMarket struct {
	mu        sync.Mutex
	fetches   map[string]int
	subs      map[string]int
	history   func(symbol, tf string, call int) ([]models.Candle, error)
	subscribe func(ctx context.Context, symbol, tf string, call int) (<-chan models.CandleEvent, error)
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{fetches: map[string]int{}, subs: map[string]int{}}
}

func (f *fakeMarket) FetchHistory(_ context.Context, symbol, tf string, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	f.fetches[symbol+"/"+tf]++
	call := f.fetches[symbol+"/"+tf]
	f.mu.Unlock()
	return f.history(symbol, tf, call)
}

func (f *fakeMarket) SubscribeLive(ctx context.Context, symbol, tf string) (<-chan models.CandleEvent, error) {
	f.mu.Lock()
	f.subs[symbol+"/"+tf]++
	call := f.subs[symbol+"/"+tf]
	f.mu.Unlock()
	return f.subscribe(ctx, symbol, tf, call)
}

func (f *fakeMarket) fetchCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[key]
}

func (f *fakeMarket) subCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[key]
}

// openStream: поток, который живёт до отмены ctx.
func openStream(ctx context.Context) <-chan models.CandleEvent {
	ch := make(chan models.CandleEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

type recordingNotifier struct {
	mu       sync.Mutex
	signals  []models.Signal
	statuses []string
	actions  chan models.UserAction
	fail     bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{actions: make(chan models.UserAction, 4)}
}

func (n *recordingNotifier) Notify(_ context.Context, sig models.Signal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, sig)
	if n.fail {
		return models.ErrNotifierDelivery
	}
	return nil
}

func (n *recordingNotifier) ReportStatus(_ context.Context, text string) {
	n.mu.Lock()
	n.statuses = append(n.statuses, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) Actions() <-chan models.UserAction { return n.actions }

func (n *recordingNotifier) Signals() []models.Signal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Signal(nil), n.signals...)
}

func (n *recordingNotifier) Statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.statuses...)
}

type recordingJournal struct {
	mu      sync.Mutex
	signals []models.Signal
	actions []models.UserAction
}

func (j *recordingJournal) RecordSignal(_ context.Context, sig models.Signal) error {
	j.mu.Lock()
	j.signals = append(j.signals, sig)
	j.mu.Unlock()
	return nil
}

func (j *recordingJournal) RecordAction(_ context.Context, a models.UserAction) error {
	j.mu.Lock()
	j.actions = append(j.actions, a)
	j.mu.Unlock()
	return nil
}

type recordingHealth struct {
	mu     sync.Mutex
	states map[string][]models.PipelineState
}

func newRecordingHealth() *recordingHealth {
	return &recordingHealth{states: map[string][]models.PipelineState{}}
}

func (h *recordingHealth) SetSymbolState(symbol string, s models.PipelineState) {
	h.mu.Lock()
	h.states[symbol] = append(h.states[symbol], s)
	h.mu.Unlock()
}

func (h *recordingHealth) TouchCandle(string, time.Time) {}

func (h *recordingHealth) seen(symbol string, s models.PipelineState) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, st := range h.states[symbol] {
		if st == s {
			n++
		}
	}
	return n
}

type memPositions struct {
	mu     sync.Mutex
	active map[string]bool
}

func newMemPositions() *memPositions { return &memPositions{active: map[string]bool{}} }

func (m *memPositions) SetActive(_ context.Context, symbol string, active bool) error {
	m.mu.Lock()
	m.active[symbol] = active
	m.mu.Unlock()
	return nil
}

func (m *memPositions) IsActive(_ context.Context, symbol string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[symbol], nil
}

func testEngine(trendFilter bool) *service.Engine {
	return service.NewEngine(service.EngineConfig{
		Thresholds:    service.DefaultThresholds(),
		TakeProfitPct: 1.5,
		StopLossPct:   0.5,
		TrendFilter:   trendFilter,
	})
}

func testPipelineConfig(symbol string) PipelineConfig {
	return PipelineConfig{
		Symbol:             symbol,
		Timeframe:          "1m",
		WindowSize:         300,
		SentSignalsCap:     100,
		BackfillLimit:      250,
		MaxBackfillRetries: 3,
		BackfillRetryDelay: time.Millisecond,
		ReconnectDelay:     time.Millisecond,
		ReconnectMaxDelay:  2 * time.Millisecond,
	}
}

func testConfig(symbols ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Strategy.Symbols = symbols
	cfg.Strategy.Timeframe = "1m"
	cfg.Strategy.WindowSize = 300
	cfg.Strategy.SentSignalsCap = 100
	cfg.Pipeline.BackfillLimit = 250
	cfg.Pipeline.MaxBackfillRetries = 3
	cfg.Pipeline.BackfillRetryDelay = time.Millisecond
	cfg.Pipeline.ReconnectDelay = time.Millisecond
	cfg.Pipeline.ReconnectMaxDelay = 2 * time.Millisecond
	return cfg
}
