package service

import (
	"strconv"

	"signal_bot/internal/models"
)

func sideIcon(s models.Side) string {
	if s == models.SideShort {
		return "🔴"
	}
	return "🟢"
}

// price без хвостовых нулей, как пришло с биржи
func price(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
