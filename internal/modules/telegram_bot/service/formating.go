package service

import (
	"fmt"

	"signal_bot/internal/models"
)

func formatSignal(sig models.Signal) string {
	return fmt.Sprintf(
		"📊 Сигнал на вход\n"+
			"Монета: %s\n"+
			"Таймфрейм: %s\n"+
			"Направление: %s %s\n"+
			"Цена входа: %s\n"+
			"TP: %s\n"+
			"SL: %s",
		sig.Symbol,
		sig.Timeframe,
		sideIcon(sig.Side), sig.Side,
		price(sig.EntryPrice),
		price(sig.TakeProfit),
		price(sig.StopLoss),
	)
}

func formatAck(action models.Action, symbol string) string {
	if action == models.ActionEnter {
		return fmt.Sprintf("✅ Отмечено: Вы вошли в позицию %s", symbol)
	}
	return fmt.Sprintf("🚪 Отмечено: Вы вышли из позиции %s", symbol)
}
