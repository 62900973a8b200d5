package service

// emaState: рекурсивная EMA, засевается первым значением (adjust=false).
// Готова после period значений.
type emaState struct {
	period int
	alpha  float64
	value  float64
	warmup int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.warmup == 0 {
		e.value = price
		e.warmup = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	if e.warmup < e.period {
		e.warmup++
	}
}

func (e *emaState) Ready() bool    { return e.warmup >= e.period }
func (e *emaState) Value() float64 { return e.value }

// EMA по всей серии; ok=false, пока значений меньше period.
func EMA(values []float64, period int) (float64, bool) {
	e := newEMA(period)
	for _, v := range values {
		e.Update(v)
	}
	return e.Value(), e.Ready() && len(values) >= period
}
