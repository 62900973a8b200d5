package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesServiceField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prevInfo, prevFatal := InfoLogger, FatalLogger
	Set(zap.New(core))
	old := SetServiceName("signal_bot")
	t.Cleanup(func() {
		InfoLogger, FatalLogger = prevInfo, prevFatal
		SetServiceName(old)
	})

	Debug("debug %d", 1)
	Info("info %s", "x")
	Warn("warn")
	Error("error %v", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "error boom", entries[3].Message)
	for _, e := range entries {
		assert.Equal(t, "signal_bot", e.ContextMap()["service"])
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud"))
}

func TestNopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		zap.NewNop().Info("x")
		Info("no init needed")
	})
}
