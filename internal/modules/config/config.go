package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// Config ...
type Config struct {
	Telegram struct {
		Token       string `mapstructure:"token" yaml:"token"`
		ChatID      int64  `mapstructure:"chat_id" yaml:"chat_id"`
		APIEndpoint string `mapstructure:"api_endpoint" yaml:"api_endpoint"`
	} `mapstructure:"telegram" yaml:"telegram"`

	DB string `mapstructure:"db_dsn" yaml:"db_dsn"`

	Redis struct {
		Addr     string `mapstructure:"addr" yaml:"addr"`
		Password string `mapstructure:"password" yaml:"password"`
		DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
		Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	} `mapstructure:"redis" yaml:"redis"`

	Service struct {
		Name      string `mapstructure:"name" yaml:"name" validate:"required"`
		Host      string `mapstructure:"host" yaml:"host"`
		AdminPort int    `mapstructure:"admin_port" yaml:"admin_port" validate:"gte=0,lte=65535"`
		LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	} `mapstructure:"service" yaml:"service"`

	Tracing struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Host    string `mapstructure:"host" yaml:"host" validate:"required_if=Enabled true"`
		Port    int    `mapstructure:"port" yaml:"port"`
	} `mapstructure:"tracing" yaml:"tracing"`

	Market struct {
		RestURL     string        `mapstructure:"rest_url" yaml:"rest_url" validate:"required,url"`
		WSURL       string        `mapstructure:"ws_url" yaml:"ws_url" validate:"required,url"`
		HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout" validate:"gt=0"`
	} `mapstructure:"market" yaml:"market"`

	Strategy Strategy `mapstructure:"strategy" yaml:"strategy"`
	Pipeline Pipeline `mapstructure:"pipeline" yaml:"pipeline"`
}

// Strategy: символы, таймфреймы и пороги правила входа.
type Strategy struct {
	Symbols        []string `mapstructure:"symbols" yaml:"symbols" validate:"required,min=1,dive,required"`
	Timeframe      string   `mapstructure:"timeframe" yaml:"timeframe" validate:"required"`
	TrendTimeframe string   `mapstructure:"trend_timeframe" yaml:"trend_timeframe"`
	TrendFilter    bool     `mapstructure:"trend_filter" yaml:"trend_filter"`

	TakeProfitPct float64 `mapstructure:"take_profit_pct" yaml:"take_profit_pct" validate:"gt=0"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct" yaml:"stop_loss_pct" validate:"gt=0,lt=100"`

	ADXMin        float64 `mapstructure:"adx_min" yaml:"adx_min" validate:"gte=0"`
	VolatilityMin float64 `mapstructure:"volatility_min" yaml:"volatility_min" validate:"gte=0"`
	VolumeRatio   float64 `mapstructure:"volume_ratio" yaml:"volume_ratio" validate:"gt=0"`
	CCIAbsMin     float64 `mapstructure:"cci_abs_min" yaml:"cci_abs_min" validate:"gte=0"`

	WindowSize     int `mapstructure:"window_size" yaml:"window_size" validate:"gte=250"`
	SentSignalsCap int `mapstructure:"sent_signals_cap" yaml:"sent_signals_cap" validate:"gte=0"`
}

// Pipeline: бэкфилл, переподключение, хартбит.
type Pipeline struct {
	BackfillLimit      int           `mapstructure:"backfill_limit" yaml:"backfill_limit" validate:"gte=200,lte=1500"`
	MaxBackfillRetries int           `mapstructure:"max_backfill_retries" yaml:"max_backfill_retries" validate:"gte=1"`
	BackfillRetryDelay time.Duration `mapstructure:"backfill_retry_delay" yaml:"backfill_retry_delay" validate:"gte=0"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay" validate:"gt=0"`
	ReconnectMaxDelay  time.Duration `mapstructure:"reconnect_max_delay" yaml:"reconnect_max_delay" validate:"gtefield=ReconnectDelay"`
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval" validate:"gte=0"`
}

var defaults = map[string]any{
	"telegram.token":        "",
	"telegram.chat_id":      0,
	"telegram.api_endpoint": "",
	"db_dsn":                "",

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "signal_bot",

	"service.name":       "signal_bot",
	"service.host":       "",
	"service.admin_port": 8080,
	"service.log_level":  "info",

	"tracing.enabled": false,
	"tracing.host":    "localhost",
	"tracing.port":    6831,

	"market.rest_url":     "https://fapi.binance.com",
	"market.ws_url":       "wss://fstream.binance.com/ws",
	"market.http_timeout": "10s",

	"strategy.symbols":          []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT", "LTCUSDT", "ADAUSDT"},
	"strategy.timeframe":        "1m",
	"strategy.trend_timeframe":  "",
	"strategy.trend_filter":     false,
	"strategy.take_profit_pct":  1.5,
	"strategy.stop_loss_pct":    0.5,
	"strategy.adx_min":          20.0,
	"strategy.volatility_min":   0.0015,
	"strategy.volume_ratio":     1.0,
	"strategy.cci_abs_min":      100.0,
	"strategy.window_size":      500,
	"strategy.sent_signals_cap": 1024,

	"pipeline.backfill_limit":       500,
	"pipeline.max_backfill_retries": 3,
	"pipeline.backfill_retry_delay": "5s",
	"pipeline.reconnect_delay":      "1s",
	"pipeline.reconnect_max_delay":  "30s",
	"pipeline.heartbeat_interval":   "1h",
}

// явные имена переменных окружения, которые исторически задаются без префикса секции
var envAliases = map[string]string{
	"telegram.token":   "TELEGRAM_TOKEN",
	"telegram.chat_id": "TELEGRAM_CHAT_ID",
	"db_dsn":           "DATABASE_DSN",
	"redis.addr":       "REDIS_ADDR",
}

// NewConfig читает configs/$CONFIG_FILE (+ .env и переменные окружения) и валидирует результат.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	return Load(configDir + "/" + configFileName)
}

// Load собирает конфиг из файла path (если он есть), окружения и дефолтов.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	out := make([]string, 0, len(c.Strategy.Symbols))
	seen := make(map[string]struct{}, len(c.Strategy.Symbols))
	for _, s := range c.Strategy.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	c.Strategy.Symbols = out
	c.Strategy.Timeframe = strings.TrimSpace(c.Strategy.Timeframe)
	c.Strategy.TrendTimeframe = strings.TrimSpace(c.Strategy.TrendTimeframe)
	c.Service.LogLevel = strings.ToLower(c.Service.LogLevel)
}

// Redacted: YAML эффективного конфига для стартового лога, без секретов.
func (c *Config) Redacted() string {
	cp := *c
	cp.Strategy.Symbols = append([]string(nil), c.Strategy.Symbols...)
	if cp.Telegram.Token != "" {
		cp.Telegram.Token = "***"
	}
	if cp.DB != "" {
		cp.DB = "***"
	}
	if cp.Redis.Password != "" {
		cp.Redis.Password = "***"
	}
	out, err := yaml.Marshal(&cp)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(out)
}
