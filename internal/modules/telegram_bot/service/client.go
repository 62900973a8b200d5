package service

import (
	"context"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

// StatusProvider отдаёт текст для /status.
type StatusProvider interface {
	StatusReport() string
}

// Telegram: уведомления о сигналах с кнопками «вошёл/вышел» и поток нажатий.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	actions chan models.UserAction

	mu     sync.RWMutex
	status StatusProvider

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	var (
		b   *tgbot.BotAPI
		err error
	)
	if cfg.Telegram.APIEndpoint != "" {
		b, err = tgbot.NewBotAPIWithAPIEndpoint(cfg.Telegram.Token, cfg.Telegram.APIEndpoint)
	} else {
		b, err = tgbot.NewBotAPI(cfg.Telegram.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)

	return &Telegram{
		bot:     b,
		chatID:  cfg.Telegram.ChatID,
		actions: make(chan models.UserAction, 16),
	}, nil
}

func (t *Telegram) SetStatusProvider(p StatusProvider) {
	t.mu.Lock()
	t.status = p
	t.mu.Unlock()
}

// Notify отправляет сигнал с двумя кнопками. Ошибка отправки оборачивает ErrNotifierDelivery.
func (t *Telegram) Notify(_ context.Context, sig models.Signal) error {
	msg := tgbot.NewMessage(t.chatID, formatSignal(sig))
	msg.ReplyMarkup = tgbot.NewInlineKeyboardMarkup(tgbot.NewInlineKeyboardRow(
		tgbot.NewInlineKeyboardButtonData("✅ Я вошёл", callbackData(models.ActionEnter, sig.Symbol)),
		tgbot.NewInlineKeyboardButtonData("🚪 Я вышел", callbackData(models.ActionExit, sig.Symbol)),
	))

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrNotifierDelivery, sig.ID, err)
	}
	return nil
}

// ReportStatus: best effort: ошибка только логируется.
func (t *Telegram) ReportStatus(_ context.Context, text string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, text)); err != nil {
		logger.Warn("[TG] status not delivered: %v", err)
	}
}

// Actions: нажатия «вошёл/вышел» в порядке поступления.
func (t *Telegram) Actions() <-chan models.UserAction {
	return t.actions
}

func (t *Telegram) send(chatID int64, text string) {
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, text)); err != nil {
		logger.Warn("[TG] send to %d failed: %v", chatID, err)
	}
}

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

// Start запускает long polling обновлений.
func (t *Telegram) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.bot.StopReceivingUpdates()
	t.wg.Wait()
}
