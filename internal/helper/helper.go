package helper

import (
	"strings"
	"time"
)

// NormTF приводит таймфрейм к нижнему регистру без префикса канала ("kline_1m", "60m" -> "1h").
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "kline_")
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m":
		return "1h"
	case "240m":
		return "4h"
	case "1440m":
		return "1d"
	default:
		return s
	}
}

// TimeframeToDuration: длительность бара; 0 для неизвестного таймфрейма.
func TimeframeToDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}

// NormSymbol: биржевой тикер в верхнем регистре ("btcusdt" -> "BTCUSDT").
func NormSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
