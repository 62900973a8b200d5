package service

import (
	"signal_bot/internal/models"
)

// windowMargin: запас сверх самого длинного lookback (EMA200), чтобы вытеснение старых свечей
// не возвращало индикаторы к границе прогрева.
const windowMargin = 50

const MinWindowSize = WarmupCandles + windowMargin

// Window: кольцевой буфер закрытых свечей одного (символ, таймфрейм), строго по возрастанию OpenTime.
// Не потокобезопасен: окном владеет одна горутина пайплайна.
type Window struct {
	buf   []models.Candle
	start int
	size  int
}

func NewWindow(capacity int) *Window {
	if capacity < MinWindowSize {
		capacity = MinWindowSize
	}
	return &Window{buf: make([]models.Candle, capacity)}
}

// Append добавляет свечу; при переполнении вытесняет самую старую.
// Свеча с OpenTime <= последней отклоняется, окно не меняется.
func (w *Window) Append(c models.Candle) error {
	if w.size > 0 {
		last := w.buf[w.index(w.size-1)].OpenTime
		switch {
		case c.OpenTime.Equal(last):
			return ErrDuplicateCandle
		case c.OpenTime.Before(last):
			return ErrStaleCandle
		}
	}

	if w.size < len(w.buf) {
		w.buf[w.index(w.size)] = c
		w.size++
		return nil
	}
	w.buf[w.start] = c
	w.start = (w.start + 1) % len(w.buf)
	return nil
}

// Snapshot: копия содержимого от старой свечи к новой.
func (w *Window) Snapshot() []models.Candle {
	out := make([]models.Candle, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[w.index(i)]
	}
	return out
}

func (w *Window) Last() (models.Candle, bool) {
	if w.size == 0 {
		return models.Candle{}, false
	}
	return w.buf[w.index(w.size-1)], true
}

func (w *Window) Len() int { return w.size }
func (w *Window) Cap() int { return len(w.buf) }

func (w *Window) index(i int) int { return (w.start + i) % len(w.buf) }
