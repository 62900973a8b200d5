package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

func TestStateReadyWhenAnySymbolLive(t *testing.T) {
	s := NewState()
	assert.False(t, s.Ready())

	s.SetSymbolState("BTCUSDT", models.StateBackfilling)
	s.SetSymbolState("ETHUSDT", models.StateAborted)
	assert.False(t, s.Ready())

	s.SetSymbolState("BTCUSDT", models.StateLive)
	assert.True(t, s.Ready())

	s.SetSymbolState("BTCUSDT", models.StateReconnecting)
	assert.False(t, s.Ready())
}

func TestStateSymbols(t *testing.T) {
	s := NewState()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetSymbolState("SOLUSDT", models.StateLive)
	s.SetSymbolState("ADAUSDT", models.StateWarmingUp)
	s.TouchCandle("SOLUSDT", at)

	got := s.Symbols()
	require.Len(t, got, 2)
	assert.Equal(t, SymbolHealth{Symbol: "ADAUSDT", State: "WARMING_UP"}, got[0])
	assert.Equal(t, SymbolHealth{Symbol: "SOLUSDT", State: "LIVE", LastCandle: at.Unix()}, got[1])
}
