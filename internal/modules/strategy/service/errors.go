package service

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfOrderCandle: свеча не новее последней в окне.
	ErrOutOfOrderCandle = errors.New("out of order candle")
	ErrDuplicateCandle  = fmt.Errorf("%w: duplicate open time", ErrOutOfOrderCandle)
	ErrStaleCandle      = fmt.Errorf("%w: stale open time", ErrOutOfOrderCandle)

	// ErrInvalidDirection: нарушение контракта: сторона не LONG/SHORT.
	ErrInvalidDirection = errors.New("direction must be LONG or SHORT")
)
