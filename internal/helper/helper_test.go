package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormTF(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "1m", want: "1m"},
		{name: "upper hour", in: "1H", want: "1h"},
		{name: "minutes hour", in: "60m", want: "1h"},
		{name: "kline prefix", in: "kline_15m", want: "15m"},
		{name: "spaces", in: " 5m ", want: "5m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormTF(tt.in))
		})
	}
}

func TestTimeframeToDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TimeframeToDuration("1m"))
	assert.Equal(t, 4*time.Hour, TimeframeToDuration("4H"))
	assert.Equal(t, time.Duration(0), TimeframeToDuration("7m"))
}

func TestNormSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormSymbol(" btcusdt "))
}
