package service

import (
	"math"

	"signal_bot/internal/models"
)

const (
	EMAFastPeriod    = 50
	EMASlowPeriod    = 200
	RSIPeriod        = 14
	ADXPeriod        = 14
	CCIPeriod        = 20
	VolumeMeanPeriod = 50

	cciConstant = 0.015

	// WarmupCandles: минимум свечей, при котором определены все индикаторы (доминирует EMA200).
	WarmupCandles = EMASlowPeriod
)

// Compute считает индикаторы по последней свече окна.
// ok=false, пока окно короче WarmupCandles: строка «не готова», а не нули.
func Compute(candles []models.Candle) (models.IndicatorRow, bool) {
	if len(candles) < WarmupCandles {
		return models.IndicatorRow{}, false
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	ema50, ok50 := EMA(closes, EMAFastPeriod)
	ema200, ok200 := EMA(closes, EMASlowPeriod)
	rsi, okRSI := RSI(closes, RSIPeriod)
	adx, okADX := ADX(candles, ADXPeriod)
	cci, okCCI := CCI(candles, CCIPeriod)
	volMean, okVol := SMA(volumes, VolumeMeanPeriod)
	if !ok50 || !ok200 || !okRSI || !okADX || !okCCI || !okVol {
		return models.IndicatorRow{}, false
	}

	last := candles[len(candles)-1]
	if last.Close <= 0 {
		return models.IndicatorRow{}, false
	}

	return models.IndicatorRow{
		OpenTime:     last.OpenTime,
		Close:        last.Close,
		Volume:       last.Volume,
		EMA50:        ema50,
		EMA200:       ema200,
		RSI14:        rsi,
		ADX14:        adx,
		CCI20:        cci,
		Volatility:   (last.High - last.Low) / last.Close,
		VolumeMean50: volMean,
	}, true
}

// SMA последних period значений.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// RSI Уайлдера: средние прирост/падение засеваются простым средним первых period изменений.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	n := float64(period)
	for i := period + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain = (avgGain*(n-1) + g) / n
		avgLoss = (avgLoss*(n-1) + l) / n
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func gainLoss(change float64) (float64, float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

// ADX Уайлдера: TR/+DM/-DM -> сглаженные суммы -> +DI/-DI -> DX -> ADX.
// Нужно минимум 2*period свечей.
func ADX(candles []models.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < 2*period {
		return 0, false
	}

	n := float64(period)
	var trS, plusS, minusS float64
	var adx float64
	dxCount := 0

	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]

		tr := math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		up := cur.High - prev.High
		down := prev.Low - cur.Low
		var plusDM, minusDM float64
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}

		if i <= period {
			trS += tr
			plusS += plusDM
			minusS += minusDM
			if i < period {
				continue
			}
		} else {
			trS = trS - trS/n + tr
			plusS = plusS - plusS/n + plusDM
			minusS = minusS - minusS/n + minusDM
		}

		dx := directionalIndex(trS, plusS, minusS)
		dxCount++
		switch {
		case dxCount < period:
			adx += dx
		case dxCount == period:
			adx = (adx + dx) / n
		default:
			adx = (adx*(n-1) + dx) / n
		}
	}

	if dxCount < period {
		return 0, false
	}
	return adx, true
}

func directionalIndex(trS, plusS, minusS float64) float64 {
	if trS == 0 {
		return 0
	}
	plusDI := 100 * plusS / trS
	minusDI := 100 * minusS / trS
	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}

// CCI = (TP - SMA(TP)) / (0.015 * MAD), TP = (H+L+C)/3. При MAD == 0 возвращает 0.
func CCI(candles []models.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}

	tail := candles[len(candles)-period:]
	tp := make([]float64, period)
	var sum float64
	for i, c := range tail {
		tp[i] = (c.High + c.Low + c.Close) / 3
		sum += tp[i]
	}
	mean := sum / float64(period)

	var dev float64
	for _, v := range tp {
		dev += math.Abs(v - mean)
	}
	mad := dev / float64(period)
	if mad == 0 {
		return 0, true
	}
	return (tp[period-1] - mean) / (cciConstant * mad), true
}
