package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// Manager: оркестратор: по пайплайну на символ, обработчик нажатий и хартбит.
// Падение одного символа не трогает остальные.
type Manager struct {
	notifier  Notifier
	positions PositionStore
	heartbeat time.Duration

	pipelines []*Pipeline
	bySymbol  map[string]*Pipeline
	ack       *AckHandler

	runID     uuid.UUID
	startedAt time.Time

	mu      sync.Mutex
	running map[string]struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type ManagerParams struct {
	Config    *config.Config
	Engine    *service.Engine
	Market    MarketData
	Notifier  Notifier
	Journal   Journal
	Positions PositionStore
	Health    HealthReporter
}

func NewManager(p ManagerParams) *Manager {
	cfg := p.Config
	m := &Manager{
		notifier:  p.Notifier,
		positions: p.Positions,
		heartbeat: cfg.Pipeline.HeartbeatInterval,
		bySymbol:  make(map[string]*Pipeline, len(cfg.Strategy.Symbols)),
		runID:     uuid.New(),
		running:   make(map[string]struct{}),
	}

	gates := make(map[string]*service.Gate, len(cfg.Strategy.Symbols))
	for _, sym := range cfg.Strategy.Symbols {
		pl := NewPipeline(PipelineConfig{
			Symbol:             sym,
			Timeframe:          cfg.Strategy.Timeframe,
			TrendTimeframe:     cfg.Strategy.TrendTimeframe,
			WindowSize:         cfg.Strategy.WindowSize,
			SentSignalsCap:     cfg.Strategy.SentSignalsCap,
			BackfillLimit:      cfg.Pipeline.BackfillLimit,
			MaxBackfillRetries: cfg.Pipeline.MaxBackfillRetries,
			BackfillRetryDelay: cfg.Pipeline.BackfillRetryDelay,
			ReconnectDelay:     cfg.Pipeline.ReconnectDelay,
			ReconnectMaxDelay:  cfg.Pipeline.ReconnectMaxDelay,
		}, p.Market, p.Notifier, p.Engine, p.Journal, p.Health)

		m.pipelines = append(m.pipelines, pl)
		m.bySymbol[sym] = pl
		gates[sym] = pl.Gate()
	}
	m.ack = NewAckHandler(gates, p.Positions, p.Journal)
	return m
}

func (m *Manager) Pipeline(symbol string) (*Pipeline, bool) {
	p, ok := m.bySymbol[symbol]
	return p, ok
}

// Start поднимает все пайплайны и не блокирует.
func (m *Manager) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	m.cancel = cancel
	m.startedAt = time.Now()
	m.mu.Unlock()

	logger.Info("[BOOT] run %s: %d symbols", m.runID, len(m.pipelines))
	m.restorePositions(ctx)
	m.notifier.ReportStatus(ctx, "🤖 Бот с WebSocket потоками запущен и начал анализ монет!")

	for _, p := range m.pipelines {
		m.runPipeline(ctx, p)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.ackLoop(ctx, m.notifier.Actions())
	}()

	if m.heartbeat > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.recoverAndReport(ctx, "хартбит")
			m.heartbeatLoop(ctx)
		}()
	}
}

// ackLoop перезапускает обработку нажатий после паники, пока не закрыт канал или ctx.
func (m *Manager) ackLoop(ctx context.Context, actions <-chan models.UserAction) {
	for ctx.Err() == nil {
		if m.ackOnce(ctx, actions) {
			return
		}
	}
}

func (m *Manager) ackOnce(ctx context.Context, actions <-chan models.UserAction) (finished bool) {
	defer m.recoverAndReport(ctx, "обработка нажатий")
	m.ack.Run(ctx, actions)
	return true
}

// recoverAndReport вызывается только через defer.
func (m *Manager) recoverAndReport(ctx context.Context, what string) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("[PIPE] %s panic: %v\n%s", what, r, debug.Stack())
	m.notifier.ReportStatus(ctx, fmt.Sprintf("❌ %s: внутренняя ошибка: %v", what, r))
}

// Stop гасит всех и ждёт выхода горутин, но не дольше ctx.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("runner stop: %w", ctx.Err())
	}

	m.notifier.ReportStatus(ctx, "⏹ Бот остановлен\n"+m.StatusReport())
	return err
}

func (m *Manager) runPipeline(ctx context.Context, p *Pipeline) {
	m.mu.Lock()
	if _, ok := m.running[p.Symbol()]; ok {
		m.mu.Unlock()
		return
	}
	m.running[p.Symbol()] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.running, p.Symbol())
			m.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				p.setState(models.StateAborted)
				logger.Error("[PIPE] %s panic: %v\n%s", p.Symbol(), r, debug.Stack())
				m.notifier.ReportStatus(ctx, fmt.Sprintf("❌ %s: анализ остановлен из-за внутренней ошибки", p.Symbol()))
			}
		}()

		if err := p.Run(ctx); err != nil {
			logger.Error("[PIPE] %s aborted: %v", p.Symbol(), err)
			m.notifier.ReportStatus(ctx, fmt.Sprintf("❌ %s: не удалось загрузить историю, анализ остановлен", p.Symbol()))
		}
	}()
}

// activeLister: хранилище, которое отдаёт все позиции одним запросом.
type activeLister interface {
	Active(ctx context.Context) ([]string, error)
}

func (m *Manager) restorePositions(ctx context.Context) {
	if m.positions == nil {
		return
	}
	if l, ok := m.positions.(activeLister); ok {
		syms, err := l.Active(ctx)
		if err == nil {
			for _, sym := range syms {
				if p, ok := m.bySymbol[sym]; ok {
					p.Gate().SetPosition(true)
					logger.Info("[BOOT] %s: position restored, signals suppressed until exit", sym)
				}
			}
			return
		}
		logger.Warn("[BOOT] list positions: %v, falling back to per-symbol lookup", err)
	}
	for _, p := range m.pipelines {
		active, err := m.positions.IsActive(ctx, p.Symbol())
		if err != nil {
			logger.Warn("[BOOT] %s restore position: %v", p.Symbol(), err)
			continue
		}
		if active {
			p.Gate().SetPosition(true)
			logger.Info("[BOOT] %s: position restored, signals suppressed until exit", p.Symbol())
		}
	}
}

func (m *Manager) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(m.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report := m.StatusReport()
			logger.Info("[HEARTBEAT] %s", strings.ReplaceAll(report, "\n", " | "))
			m.notifier.ReportStatus(ctx, report)
		}
	}
}

// LiveSymbols: символы в состоянии LIVE, по алфавиту.
func (m *Manager) LiveSymbols() []string {
	var out []string
	for _, p := range m.pipelines {
		if p.State() == models.StateLive {
			out = append(out, p.Symbol())
		}
	}
	sort.Strings(out)
	return out
}

// StatusReport: текст для хартбита и /status.
func (m *Manager) StatusReport() string {
	m.mu.Lock()
	started := m.startedAt
	m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "🩺 Статус")
	if !started.IsZero() {
		fmt.Fprintf(&b, " (uptime %s)", time.Since(started).Truncate(time.Second))
	}
	b.WriteString("\n")

	live := m.LiveSymbols()
	if len(live) == 0 {
		b.WriteString("LIVE: нет\n")
	} else {
		fmt.Fprintf(&b, "LIVE: %s\n", strings.Join(live, ", "))
	}

	var positioned []string
	for _, p := range m.pipelines {
		if p.Gate().InPosition() {
			positioned = append(positioned, p.Symbol())
		}
	}
	if len(positioned) > 0 {
		fmt.Fprintf(&b, "В позиции: %s\n", strings.Join(positioned, ", "))
	}

	for _, p := range m.pipelines {
		fmt.Fprintf(&b, "• %s %s", p.Symbol(), p.State())
		if o := p.LastOutcome(); o.Text != "" {
			fmt.Fprintf(&b, " | %s (%s)", o.Text, o.At.UTC().Format("15:04:05"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReportFatal: последнее сообщение в статусный канал перед аварийным выходом процесса.
// notifier может быть nil, если граф не успел его собрать.
func ReportFatal(ctx context.Context, notifier Notifier, err error) {
	if notifier == nil || err == nil {
		return
	}
	notifier.ReportStatus(ctx, fmt.Sprintf("💥 Бот остановлен из-за ошибки: %v", err))
}
