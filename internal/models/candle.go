package models

import "time"

// Candle: закрытая OHLCV свеча.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// CandleEvent: то, что отдаёт live-подписка: свеча + признак закрытия.
type CandleEvent struct {
	Symbol    string
	Timeframe string
	Candle    Candle
	Closed    bool
}

// IndicatorRow: срез индикаторов по последней свече окна.
type IndicatorRow struct {
	OpenTime time.Time
	Close    float64
	Volume   float64

	EMA50        float64
	EMA200       float64
	RSI14        float64
	ADX14        float64
	CCI20        float64
	Volatility   float64
	VolumeMean50 float64
}
