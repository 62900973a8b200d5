package runner

import (
	"context"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// AckHandler переносит нажатия «вошёл/вышел» во флаг позиции гейта нужного символа.
// Единственное место, где флаг меняется снаружи пайплайна.
type AckHandler struct {
	gates     map[string]*service.Gate
	positions PositionStore
	journal   Journal
}

func NewAckHandler(gates map[string]*service.Gate, positions PositionStore, journal Journal) *AckHandler {
	if journal == nil {
		journal = nopJournal{}
	}
	return &AckHandler{gates: gates, positions: positions, journal: journal}
}

// OnAction идемпотентен: повторный enter/exit и неизвестный символ ничего не меняют.
// changed=true, только если флаг действительно поменялся.
func (h *AckHandler) OnAction(ctx context.Context, a models.UserAction) (changed bool) {
	symbol := helper.NormSymbol(a.Symbol)
	gate, ok := h.gates[symbol]
	if !ok {
		logger.Warn("[ACK] unknown symbol %q", a.Symbol)
		return false
	}

	var active bool
	switch a.Action {
	case models.ActionEnter:
		active = true
	case models.ActionExit:
		active = false
	default:
		logger.Warn("[ACK] unknown action %q for %s", a.Action, symbol)
		return false
	}

	if !gate.SetPosition(active) {
		logger.Debug("[ACK] %s %s: already in this state", symbol, a.Action)
		return false
	}
	logger.Info("[ACK] %s position active=%t", symbol, active)

	if h.positions != nil {
		if err := h.positions.SetActive(ctx, symbol, active); err != nil {
			logger.Warn("[ACK] %s persist position: %v", symbol, err)
		}
	}
	a.Symbol = symbol
	if err := h.journal.RecordAction(ctx, a); err != nil {
		logger.Warn("[ACK] %s journal: %v", symbol, err)
	}
	return true
}

// Run читает поток нажатий до отмены ctx или закрытия канала.
func (h *AckHandler) Run(ctx context.Context, actions <-chan models.UserAction) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-actions:
			if !ok {
				return
			}
			h.OnAction(ctx, a)
		}
	}
}
