package service

import (
	"context"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	// 1) Команды
	if msg := update.Message; msg != nil {
		if msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
			return
		}
		t.handleCommand(msg.Chat.ID, msg.Command())
		return
	}

	// 2) Inline-кнопки под сигналами
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		if cb.Message.Chat.ID != t.chatID {
			logger.Debug("[TG] callback from foreign chat %d ignored", cb.Message.Chat.ID)
			return
		}
		t.handleCallback(ctx, cb)
	}
}

func (t *Telegram) handleCommand(chatID int64, cmd string) {
	switch cmd {
	case "start":
		t.send(chatID, "🤖 Бот присылает сигналы на вход. Под каждым сигналом отметь «Я вошёл» / «Я вышел».\n/status — состояние анализа.")
	case "status":
		t.mu.RLock()
		p := t.status
		t.mu.RUnlock()
		if p == nil {
			t.send(chatID, "ℹ️ Статус пока недоступен")
			return
		}
		t.send(chatID, p.StatusReport())
	}
}

func (t *Telegram) handleCallback(ctx context.Context, cb *tgbot.CallbackQuery) {
	// отвечаем ТГ, чтобы убрать "часики" на кнопке
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))

	action, symbol, ok := parseCallback(cb.Data)
	if !ok {
		logger.Debug("[TG] unknown callback %q", cb.Data)
		return
	}

	chatID := cb.Message.Chat.ID
	if err := t.editReplyMarkupRemove(chatID, cb.Message.MessageID); err != nil {
		logger.Warn("[TG] remove keyboard: %v", err)
	}
	t.send(chatID, formatAck(action, symbol))

	select {
	case t.actions <- models.UserAction{Symbol: symbol, Action: action, At: time.Now()}:
	case <-ctx.Done():
	}
}

func callbackData(action models.Action, symbol string) string {
	return string(action) + "_" + symbol
}

// parseCallback разбирает enter_<SYMBOL> / exit_<SYMBOL>.
func parseCallback(data string) (models.Action, string, bool) {
	verb, symbol, found := strings.Cut(data, "_")
	if !found {
		return "", "", false
	}
	symbol = helper.NormSymbol(symbol)
	if symbol == "" {
		return "", "", false
	}
	switch models.Action(verb) {
	case models.ActionEnter, models.ActionExit:
		return models.Action(verb), symbol, true
	default:
		return "", "", false
	}
}
