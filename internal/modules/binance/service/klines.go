package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// FetchHistory: закрытые свечи по возрастанию openTime.
// Последняя строка ответа обычно ещё формируется и отбрасывается: openTime + длительность бара
// ещё не наступило (для неизвестного таймфрейма смотрим на closeTime).
// Row: [openTime, o, h, l, c, v, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore]
func (c *Client) FetchHistory(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 500
	}
	if limit > maxKlinesLimit {
		limit = maxKlinesLimit
	}
	interval := helper.NormTF(timeframe)

	q := url.Values{}
	q.Set("symbol", helper.NormSymbol(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	u := c.restURL + "/fapi/v1/klines?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build klines request %s", symbol)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportErr(err, "get klines %s %s", symbol, interval)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr(err, "read klines %s %s", symbol, interval)
	}
	if resp.StatusCode/100 != 2 {
		return nil, transportErr(fmt.Errorf("http %d: %s", resp.StatusCode, string(body)), "get klines %s %s", symbol, interval)
	}

	var rows [][]any
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, transportErr(err, "decode klines %s %s", symbol, interval)
	}

	now := c.now()
	barLen := helper.TimeframeToDuration(interval)
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candle, closeTime, ok := parseKlineRow(row)
		if !ok {
			logger.Debug("[REST] %s %s: skip malformed kline row", symbol, interval)
			continue
		}
		if forming(candle.OpenTime, closeTime, barLen, now) {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

func forming(openTime, closeTime time.Time, barLen time.Duration, now time.Time) bool {
	if barLen > 0 {
		return openTime.Add(barLen).After(now)
	}
	return closeTime.After(now)
}

func parseKlineRow(row []any) (models.Candle, time.Time, bool) {
	if len(row) < 7 {
		return models.Candle{}, time.Time{}, false
	}
	openMs, ok1 := row[0].(float64)
	closeMs, ok2 := row[6].(float64)
	if !ok1 || !ok2 {
		return models.Candle{}, time.Time{}, false
	}

	var vals [5]float64
	for i := range vals {
		s, ok := row[i+1].(string)
		if !ok {
			return models.Candle{}, time.Time{}, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, time.Time{}, false
		}
		vals[i] = v
	}
	if vals[3] <= 0 {
		return models.Candle{}, time.Time{}, false
	}

	return models.Candle{
		OpenTime: time.UnixMilli(int64(openMs)).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, time.UnixMilli(int64(closeMs)).UTC(), true
}
