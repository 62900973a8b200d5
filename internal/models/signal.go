package models

import "time"

type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Signal: кандидат на вход. ID детерминирован и служит ключом дедупликации.
type Signal struct {
	ID         string
	Symbol     string
	Timeframe  string
	Side       Side
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
	Reason     string
	CreatedAt  time.Time
}
