package service

import (
	"sort"
	"sync"
	"time"

	"signal_bot/internal/models"
)

// SymbolHealth: срез по одному символу для /healthz.
type SymbolHealth struct {
	Symbol     string `json:"symbol"`
	State      string `json:"state"`
	LastCandle int64  `json:"lastCandleUnix"`
}

// State: состояние пайплайнов для liveness/readiness.
type State struct {
	startedAt time.Time

	mu         sync.RWMutex
	states     map[string]models.PipelineState
	lastCandle map[string]time.Time
}

func NewState() *State {
	return &State{
		startedAt:  time.Now(),
		states:     make(map[string]models.PipelineState),
		lastCandle: make(map[string]time.Time),
	}
}

func (s *State) SetSymbolState(symbol string, st models.PipelineState) {
	s.mu.Lock()
	s.states[symbol] = st
	s.mu.Unlock()
}

func (s *State) TouchCandle(symbol string, openTime time.Time) {
	s.mu.Lock()
	s.lastCandle[symbol] = openTime
	s.mu.Unlock()
}

// Ready: хотя бы один символ в LIVE.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.states {
		if st == models.StateLive {
			return true
		}
	}
	return false
}

func (s *State) Symbols() []SymbolHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SymbolHealth, 0, len(s.states))
	for sym, st := range s.states {
		h := SymbolHealth{Symbol: sym, State: st.String()}
		if t, ok := s.lastCandle[sym]; ok {
			h.LastCandle = t.Unix()
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
