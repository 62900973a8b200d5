package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// Ключи Binance различаются только регистром ("l"/"L", "v"/"V", "t"/"T"),
// а декодер сопоставляет их без учёта регистра: объявлены все, иначе поля перетираются.
type klineMessage struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime      int64  `json:"t"`
		CloseTime     int64  `json:"T"`
		Symbol        string `json:"s"`
		Interval      string `json:"i"`
		FirstTradeID  int64  `json:"f"`
		LastTradeID   int64  `json:"L"`
		Open          string `json:"o"`
		High          string `json:"h"`
		Low           string `json:"l"`
		Close         string `json:"c"`
		Volume        string `json:"v"`
		Trades        int64  `json:"n"`
		Closed        bool   `json:"x"`
		QuoteVolume   string `json:"q"`
		TakerBuyBase  string `json:"V"`
		TakerBuyQuote string `json:"Q"`
		Ignore        string `json:"B"`
	} `json:"k"`
}

// SubscribeLive открывает поток <symbol>@kline_<tf>. Канал закрывается при обрыве
// соединения или отмене ctx; переподключением занимается вызывающий.
func (c *Client) SubscribeLive(ctx context.Context, symbol, timeframe string) (<-chan models.CandleEvent, error) {
	tf := helper.NormTF(timeframe)
	sym := helper.NormSymbol(symbol)
	u := fmt.Sprintf("%s/%s@kline_%s", c.wsURL, strings.ToLower(sym), tf)

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, transportErr(err, "dial %s", u)
	}
	logger.Info("[WS] connected %s %s", sym, tf)

	out := make(chan models.CandleEvent, 16)
	go c.readLoop(ctx, conn, sym, tf, out)
	return out, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, symbol, tf string, out chan<- models.CandleEvent) {
	defer close(out)
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(c.pingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// разблокирует ReadMessage
				_ = conn.Close()
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
					logger.Warn("[WS] %s %s ping failed: %v", symbol, tf, err)
					// без пинга ctx больше никто не слушает: рвём чтение сразу
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("[WS] %s %s read error: %v", symbol, tf, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		ev, ok := parseKlineMessage(msg)
		if !ok {
			continue
		}
		if ev.Symbol == "" {
			ev.Symbol = symbol
		}
		if ev.Timeframe == "" {
			ev.Timeframe = tf
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func parseKlineMessage(msg []byte) (models.CandleEvent, bool) {
	var m klineMessage
	if err := sonic.Unmarshal(msg, &m); err != nil {
		return models.CandleEvent{}, false
	}
	if m.EventType != "kline" {
		return models.CandleEvent{}, false
	}

	k := m.Kline
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closep, err4 := strconv.ParseFloat(k.Close, 64)
	vol, err5 := strconv.ParseFloat(k.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || closep <= 0 {
		return models.CandleEvent{}, false
	}

	return models.CandleEvent{
		Symbol:    helper.NormSymbol(m.Symbol),
		Timeframe: helper.NormTF(k.Interval),
		Candle: models.Candle{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closep,
			Volume:   vol,
		},
		Closed: k.Closed,
	}, true
}
