package service

import (
	"sync"
	"sync/atomic"

	"signal_bot/internal/models"
)

// Verdict: решение гейта по кандидату.
type Verdict int

const (
	Admitted Verdict = iota
	SuppressedPositioned
	SuppressedSent
)

func (v Verdict) String() string {
	switch v {
	case Admitted:
		return "admitted"
	case SuppressedPositioned:
		return "suppressed: already positioned"
	case SuppressedSent:
		return "suppressed: already sent"
	default:
		return "unknown"
	}
}

// Gate: дедупликация сигналов и подавление, пока пользователь в позиции.
// Флаг позиции атомарный: его меняет обработчик нажатий из другой горутины.
// Множество отправленных id ограничено capacity (0 = без ограничения), вытеснение в порядке вставки.
type Gate struct {
	active atomic.Bool

	mu       sync.Mutex
	sent     map[string]struct{}
	order    []string
	capacity int
}

func NewGate(capacity int) *Gate {
	if capacity < 0 {
		capacity = 0
	}
	return &Gate{
		sent:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// Admit пропускает сигнал и сразу помечает id отправленным, до подтверждения доставки.
func (g *Gate) Admit(sig models.Signal) Verdict {
	if g.active.Load() {
		return SuppressedPositioned
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.sent[sig.ID]; ok {
		return SuppressedSent
	}
	g.sent[sig.ID] = struct{}{}
	g.order = append(g.order, sig.ID)

	if g.capacity > 0 && len(g.order) > g.capacity {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.sent, oldest)
	}
	return Admitted
}

// SetPosition выставляет флаг позиции; changed=false для повторного одинакового значения.
func (g *Gate) SetPosition(active bool) (changed bool) {
	return g.active.Swap(active) != active
}

func (g *Gate) InPosition() bool { return g.active.Load() }

func (g *Gate) SentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}
