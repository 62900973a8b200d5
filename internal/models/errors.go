package models

import "errors"

// Категории ошибок на границе с внешними сервисами.
var (
	ErrTransport         = errors.New("transport error")
	ErrStaleData         = errors.New("stale data")
	ErrNotifierDelivery  = errors.New("notifier delivery failure")
	ErrBackfillExhausted = errors.New("backfill retries exhausted")
)
