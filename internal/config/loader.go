// File: internal/config/loader.go
// ============================================
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"crypto-signal-bot/pkg/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults returns a complete configuration. The file only needs to list what
// it changes.
func Defaults() types.Config {
	var cfg types.Config

	cfg.Telegram.Enabled = true

	cfg.HTTP.Timeout = 10 * time.Second

	cfg.Pairs = types.PairsConfig{
		Source:         "binance",
		Count:          50,
		QuoteAsset:     "USDT",
		MinQuoteVolume: 2_000_000,
		MinTradeCount:  1000,
		Exclude:        []string{"USDCUSDT", "FDUSDUSDT", "TUSDUSDT", "BUSDUSDT", "EURUSDT"},
		CacheTTL:       24 * time.Hour,
		CacheFile:      "data/top_pairs.json",
	}

	cfg.Redis = types.RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "signalbot:",
	}

	cfg.Market = types.MarketConfig{
		Provider:      "tradingview",
		Exchange:      "BINANCE",
		Screener:      "crypto",
		FastMAColumn:  "EMA10",
		SlowMAColumn:  "EMA20",
		KlineLimit:    300,
		FastEMAPeriod: 9,
		SlowEMAPeriod: 21,
	}

	cfg.Strategy = types.StrategyConfig{
		Entry:              types.TimeframeProfile{Interval: "15m", RSIBuyBelow: 30, RSISellAbove: 70},
		Trend:              types.TimeframeProfile{Interval: "1h", RSIBuyBelow: 50, RSISellAbove: 50},
		BuyScoreThreshold:  5,
		SellScoreThreshold: 4,
		ADXMin:             25,
		StochLow:           20,
		StochHigh:          80,
	}

	cfg.Risk = types.RiskConfig{
		StopMode:            "percent",
		StopLossPercent:     3,
		TakeProfitPercent:   6,
		ATRMultiplier:       2,
		RiskReward:          2,
		TrailingStopEnabled: true,
		TrailingStopPercent: 3,
		MaxHold:             48 * time.Hour,
	}

	cfg.Store.Path = "data/active_buys.json"
	cfg.Store.LockStaleAfter = time.Hour

	cfg.Schedule.Interval = 15 * time.Minute
	cfg.Schedule.MarketHours.StartHour = 8
	cfg.Schedule.MarketHours.EndHour = 22

	cfg.LogLevel = "info"
	cfg.LogFormat = "json"

	return cfg
}

// Load merges the YAML file at path over Defaults, then applies environment
// overrides. A missing file is not an error. The result is not validated.
func Load(path string) (*types.Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *types.Config) {
	// secrets keep their conventional names
	setStr(&cfg.Binance.APIKey, "BINANCE_API_KEY")
	setStr(&cfg.Binance.SecretKey, "BINANCE_SECRET_KEY")
	setBool(&cfg.Binance.Testnet, "BINANCE_TESTNET")
	setStr(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setBool(&cfg.Telegram.Enabled, "TELEGRAM_ENABLED")
	setStr(&cfg.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")

	setDuration(&cfg.HTTP.Timeout, "BOT_HTTP_TIMEOUT")

	setStr(&cfg.Pairs.Source, "BOT_PAIRS_SOURCE")
	setInt(&cfg.Pairs.Count, "BOT_PAIRS_COUNT")
	setStr(&cfg.Pairs.QuoteAsset, "BOT_PAIRS_QUOTE_ASSET")
	setStringSlice(&cfg.Pairs.Symbols, "BOT_PAIRS_SYMBOLS")
	setDuration(&cfg.Pairs.CacheTTL, "BOT_PAIRS_CACHE_TTL")

	setBool(&cfg.Redis.Enabled, "BOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BOT_REDIS_ADDR")
	setInt(&cfg.Redis.DB, "BOT_REDIS_DB")

	setStr(&cfg.Market.Provider, "BOT_MARKET_PROVIDER")

	setStr(&cfg.Strategy.Entry.Interval, "BOT_ENTRY_TIMEFRAME")
	setStr(&cfg.Strategy.Trend.Interval, "BOT_TREND_TIMEFRAME")
	setFloat64(&cfg.Strategy.BuyScoreThreshold, "BOT_BUY_SCORE_THRESHOLD")
	setFloat64(&cfg.Strategy.SellScoreThreshold, "BOT_SELL_SCORE_THRESHOLD")

	setStr(&cfg.Risk.StopMode, "BOT_STOP_MODE")
	setFloat64(&cfg.Risk.StopLossPercent, "BOT_STOP_LOSS_PERCENT")
	setFloat64(&cfg.Risk.TakeProfitPercent, "BOT_TAKE_PROFIT_PERCENT")
	setFloat64(&cfg.Risk.ATRMultiplier, "BOT_ATR_MULTIPLIER")
	setFloat64(&cfg.Risk.RiskReward, "BOT_RISK_REWARD")
	setBool(&cfg.Risk.TrailingStopEnabled, "BOT_TRAILING_STOP_ENABLED")
	setFloat64(&cfg.Risk.TrailingStopPercent, "BOT_TRAILING_STOP_PERCENT")
	setDuration(&cfg.Risk.MaxHold, "BOT_MAX_HOLD")

	setStr(&cfg.Store.Path, "BOT_STORE_PATH")
	setDuration(&cfg.Schedule.Interval, "BOT_INTERVAL")
	setStr(&cfg.Metrics.Textfile, "BOT_METRICS_TEXTFILE")
	setStr(&cfg.Metrics.Listen, "BOT_METRICS_LISTEN")

	setStr(&cfg.LogLevel, "BOT_LOG_LEVEL")
	setStr(&cfg.LogFormat, "BOT_LOG_FORMAT")
}

// Validate rejects settings the bot cannot run with
func Validate(cfg *types.Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch cfg.Pairs.Source {
	case "binance", "coingecko":
		if cfg.Pairs.Count <= 0 {
			add("pairs.count must be positive")
		}
		if cfg.Pairs.QuoteAsset == "" {
			add("pairs.quote_asset is required")
		}
	case "static":
		if len(cfg.Pairs.Symbols) == 0 {
			add("pairs.symbols is required for the static source")
		}
	default:
		add("pairs.source %q is not one of binance, coingecko, static", cfg.Pairs.Source)
	}

	switch cfg.Market.Provider {
	case "tradingview":
		if cfg.Market.Exchange == "" || cfg.Market.Screener == "" {
			add("market.exchange and market.screener are required for tradingview")
		}
	case "binance":
		if cfg.Market.KlineLimit <= 0 {
			add("market.kline_limit must be positive")
		}
	default:
		add("market.provider %q is not one of tradingview, binance", cfg.Market.Provider)
	}

	if cfg.Strategy.Entry.Interval == "" {
		add("strategy.entry.interval is required")
	}
	if cfg.Strategy.BuyScoreThreshold <= 0 || cfg.Strategy.SellScoreThreshold <= 0 {
		add("strategy score thresholds must be positive")
	}
	for name, w := range cfg.Strategy.Weights {
		if w < 0 {
			add("strategy.weights.%s must not be negative", name)
		}
	}

	switch cfg.Risk.StopMode {
	case "percent":
	case "atr":
		if cfg.Risk.ATRMultiplier <= 0 || cfg.Risk.RiskReward <= 0 {
			add("risk.atr_multiplier and risk.risk_reward must be positive in atr mode")
		}
	default:
		add("risk.stop_mode %q is not one of percent, atr", cfg.Risk.StopMode)
	}
	if cfg.Risk.StopLossPercent <= 0 || cfg.Risk.StopLossPercent >= 100 {
		add("risk.stop_loss_percent must be between 0 and 100")
	}
	if cfg.Risk.TakeProfitPercent <= 0 {
		add("risk.take_profit_percent must be positive")
	}
	if cfg.Risk.TrailingStopEnabled && (cfg.Risk.TrailingStopPercent <= 0 || cfg.Risk.TrailingStopPercent >= 100) {
		add("risk.trailing_stop_percent must be between 0 and 100")
	}
	if cfg.Risk.MaxHold < 0 {
		add("risk.max_hold must not be negative")
	}

	if cfg.Store.Path == "" {
		add("store.path is required")
	}
	if cfg.HTTP.Timeout <= 0 {
		add("http.timeout must be positive")
	}
	if cfg.Schedule.Interval <= 0 {
		add("schedule.interval must be positive")
	}

	mh := cfg.Schedule.MarketHours
	if mh.Enabled && (mh.StartHour < 0 || mh.StartHour > 23 || mh.EndHour < 1 || mh.EndHour > 24) {
		add("schedule.market_hours must use hours within 0-24")
	}

	if cfg.Telegram.Enabled && (cfg.Telegram.BotToken == "") != (cfg.Telegram.ChatID == "") {
		add("telegram needs both bot_token and chat_id")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		*dst = cleaned
	}
}
