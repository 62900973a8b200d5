package service

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

const (
	// Binance futures отдаёт не больше 1500 свечей за запрос.
	maxKlinesLimit = 1500

	readTimeout  = 60 * time.Second
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Client отдаёт рыночные данные Binance USDⓈ-M futures: REST-историю и WS-поток kline.
// Безопасен для конкурентного использования всеми пайплайнами.
type Client struct {
	restURL string
	wsURL   string

	http   *http.Client
	dialer *websocket.Dialer
	now    func() time.Time

	pingEvery time.Duration
	writeWait time.Duration
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Market.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		restURL: strings.TrimRight(cfg.Market.RestURL, "/"),
		wsURL:   strings.TrimRight(cfg.Market.WSURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		now:     time.Now,

		pingEvery: pingInterval,
		writeWait: writeTimeout,
	}
}

// transportErr помечает ошибку как ErrTransport, сохраняя исходную причину.
func transportErr(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %w", models.ErrTransport, errors.Wrapf(err, format, args...))
}
