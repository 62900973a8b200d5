package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(restURL, wsURL string) *Client {
	cfg := &config.Config{}
	cfg.Market.RestURL = restURL
	cfg.Market.WSURL = wsURL
	cfg.Market.HTTPTimeout = 2 * time.Second
	c := NewClient(cfg)
	c.now = func() time.Time { return base.Add(2*time.Minute + 30*time.Second) }
	return c
}

func klineRow(open time.Time, o, h, l, cl, v string) string {
	return fmt.Sprintf(`[%d,"%s","%s","%s","%s","%s",%d,"0",1,"0","0","0"]`,
		open.UnixMilli(), o, h, l, cl, v, open.Add(time.Minute).UnixMilli()-1)
}

func TestFetchHistoryDropsFormingCandle(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		gotQuery = r.URL.RawQuery
		rows := []string{
			klineRow(base, "100", "101", "99", "100.5", "10"),
			klineRow(base.Add(time.Minute), "100.5", "102", "100", "101.5", "12"),
			klineRow(base.Add(2*time.Minute), "101.5", "103", "101", "102", "3"),
		}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "ws://unused")
	candles, err := c.FetchHistory(context.Background(), "btcusdt", "1m", 3)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "symbol=BTCUSDT")
	assert.Contains(t, gotQuery, "interval=1m")
	assert.Contains(t, gotQuery, "limit=3")

	require.Len(t, candles, 2)
	assert.Equal(t, base, candles[0].OpenTime)
	assert.Equal(t, 101.5, candles[1].Close)
	assert.Equal(t, 12.0, candles[1].Volume)
}

func TestFetchHistorySkipsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1,"x"],` + klineRow(base, "1", "2", "0.5", "1.5", "7") + `]`))
	}))
	defer srv.Close()

	candles, err := newTestClient(srv.URL, "").FetchHistory(context.Background(), "ETHUSDT", "1m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1.5, candles[0].Close)
}

func TestFetchHistoryTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").FetchHistory(context.Background(), "NOPE", "1m", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTransport))
	assert.Contains(t, err.Error(), "Invalid symbol")

	srv.Close()
	_, err = newTestClient(srv.URL, "").FetchHistory(context.Background(), "BTCUSDT", "1m", 10)
	assert.ErrorIs(t, err, models.ErrTransport)
}

func klineEvent(open time.Time, cl string, closed bool) string {
	return fmt.Sprintf(`{"e":"kline","E":1,"s":"BTCUSDT","k":{"t":%d,"T":%d,"s":"BTCUSDT","i":"1m","o":"100","c":"%s","h":"105","l":"95","v":"42","x":%t}}`,
		open.UnixMilli(), open.Add(time.Minute).UnixMilli()-1, cl, closed)
}

func TestSubscribeLiveStreamsEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/btcusdt@kline_1m", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(klineEvent(base, "101", false)))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(klineEvent(base, "102", true)))
	}))
	defer srv.Close()

	c := newTestClient("", "ws"+strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.SubscribeLive(ctx, "BTCUSDT", "1m")
	require.NoError(t, err)

	var got []models.CandleEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 2, "channel closes after the server drops the connection")
	assert.False(t, got[0].Closed)
	assert.True(t, got[1].Closed)
	assert.Equal(t, "BTCUSDT", got[1].Symbol)
	assert.Equal(t, "1m", got[1].Timeframe)
	assert.Equal(t, 102.0, got[1].Candle.Close)
	assert.Equal(t, base, got[1].Candle.OpenTime)
}

func TestSubscribeLiveClosesOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient("", "ws"+strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithCancel(context.Background())

	events, err := c.SubscribeLive(ctx, "ETHUSDT", "5m")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription did not close after cancel")
	}
}

func TestSubscribeLiveDialError(t *testing.T) {
	c := newTestClient("", "ws://127.0.0.1:1")
	_, err := c.SubscribeLive(context.Background(), "BTCUSDT", "1m")
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestParseKlineMessage(t *testing.T) {
	_, ok := parseKlineMessage([]byte(`{"e":"aggTrade"}`))
	assert.False(t, ok)
	_, ok = parseKlineMessage([]byte(`not json`))
	assert.False(t, ok)

	ev, ok := parseKlineMessage([]byte(klineEvent(base, "99.5", true)))
	require.True(t, ok)
	assert.Equal(t, 105.0, ev.Candle.High)
	assert.Equal(t, 95.0, ev.Candle.Low)
	assert.Equal(t, 42.0, ev.Candle.Volume)
}

// payload из документации Binance USDⓈ-M futures, как есть
const futuresKlinePayload = `{
  "e": "kline",
  "E": 1638747660000,
  "s": "BTCUSDT",
  "k": {
    "t": 1638747660000,
    "T": 1638747719999,
    "s": "BTCUSDT",
    "i": "1m",
    "f": 100,
    "L": 200,
    "o": "0.0010",
    "c": "0.0020",
    "h": "0.0025",
    "l": "0.0015",
    "v": "1000",
    "n": 100,
    "x": false,
    "q": "1.0000",
    "V": "500",
    "Q": "0.500",
    "B": "123456"
  }
}`

func TestParseKlineMessageFuturesPayload(t *testing.T) {
	ev, ok := parseKlineMessage([]byte(futuresKlinePayload))
	require.True(t, ok)

	assert.Equal(t, "BTCUSDT", ev.Symbol)
	assert.Equal(t, "1m", ev.Timeframe)
	assert.False(t, ev.Closed)
	assert.Equal(t, time.UnixMilli(1638747660000).UTC(), ev.Candle.OpenTime, "open time, not close time")
	assert.Equal(t, 0.0010, ev.Candle.Open)
	assert.Equal(t, 0.0025, ev.Candle.High)
	assert.Equal(t, 0.0015, ev.Candle.Low)
	assert.Equal(t, 0.0020, ev.Candle.Close)
	assert.Equal(t, 1000.0, ev.Candle.Volume, "base volume, not taker buy volume")
}

func TestSubscribeLiveClosesOnPingFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// молчит: чтение на клиенте само по себе не завершится
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient("", "ws"+strings.TrimPrefix(srv.URL, "http"))
	c.pingEvery = 20 * time.Millisecond
	c.writeWait = -time.Second // WriteControl сразу отдаёт timeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.SubscribeLive(ctx, "BTCUSDT", "1m")
	require.NoError(t, err)

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription stayed open after ping failure")
	}
}

func TestForming(t *testing.T) {
	now := base.Add(90 * time.Second)
	tests := []struct {
		name   string
		open   time.Time
		close  time.Time
		barLen time.Duration
		want   bool
	}{
		{name: "closed bar", open: base, close: base.Add(time.Minute - time.Millisecond), barLen: time.Minute, want: false},
		{name: "forming bar", open: base.Add(time.Minute), close: base.Add(2*time.Minute - time.Millisecond), barLen: time.Minute, want: true},
		{name: "unknown timeframe uses close time", open: base, close: base.Add(2 * time.Minute), barLen: 0, want: true},
		{name: "unknown timeframe, closed", open: base, close: base.Add(time.Minute), barLen: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, forming(tt.open, tt.close, tt.barLen, now))
		})
	}
}
