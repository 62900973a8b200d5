package service

import (
	"time"

	"signal_bot/internal/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// rampCandles: n минутных свечей с ценой, меняющейся на step за бар.
func rampCandles(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		px := start + float64(i)*step
		out[i] = models.Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Minute),
			Open:     px - step/2,
			High:     px + 0.5,
			Low:      px - 0.5,
			Close:    px,
			Volume:   100,
		}
	}
	return out
}

func candleAt(minute int, close float64) models.Candle {
	return models.Candle{
		OpenTime: t0.Add(time.Duration(minute) * time.Minute),
		Open:     close,
		High:     close + 1,
		Low:      close - 1,
		Close:    close,
		Volume:   10,
	}
}
