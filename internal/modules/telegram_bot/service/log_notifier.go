package service

import (
	"context"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// LogNotifier пишет сигналы в лог, когда токен Telegram не задан (локальный прогон).
// Нажатий не бывает: канал Actions никогда не получает событий.
type LogNotifier struct {
	actions chan models.UserAction
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{actions: make(chan models.UserAction)}
}

func (n *LogNotifier) Notify(_ context.Context, sig models.Signal) error {
	logger.Info("[TG] (log only) %s", formatSignal(sig))
	return nil
}

func (n *LogNotifier) ReportStatus(_ context.Context, text string) {
	logger.Info("[TG] (log only) %s", text)
}

func (n *LogNotifier) Actions() <-chan models.UserAction {
	return n.actions
}
