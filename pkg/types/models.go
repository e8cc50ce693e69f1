// File: pkg/types/models.go
// ============================================
package types

import (
	"math"
	"time"
)

// Config represents the bot configuration
type Config struct {
	Binance struct {
		APIKey    string `yaml:"api_key"`
		SecretKey string `yaml:"secret_key"`
		BaseURL   string `yaml:"base_url"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`

	Telegram struct {
		BotToken      string `yaml:"bot_token"`
		ChatID        string `yaml:"chat_id"`
		Enabled       bool   `yaml:"enabled"`
		NotifySummary bool   `yaml:"notify_summary"`
	} `yaml:"telegram"`

	Discord struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"discord"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	Pairs    PairsConfig    `yaml:"pairs"`
	Redis    RedisConfig    `yaml:"redis"`
	Market   MarketConfig   `yaml:"market"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`

	Store struct {
		Path           string        `yaml:"path"`
		LockStaleAfter time.Duration `yaml:"lock_stale_after"`
	} `yaml:"store"`

	Schedule struct {
		Interval    time.Duration `yaml:"interval"`
		MarketHours struct {
			Enabled   bool `yaml:"enabled"`
			StartHour int  `yaml:"start_hour"`
			EndHour   int  `yaml:"end_hour"`
		} `yaml:"market_hours"`
	} `yaml:"schedule"`

	Metrics struct {
		Textfile string `yaml:"textfile"`
		Listen   string `yaml:"listen"`
	} `yaml:"metrics"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type PairsConfig struct {
	Source         string        `yaml:"source"` // binance, coingecko, static
	Count          int           `yaml:"count"`
	QuoteAsset     string        `yaml:"quote_asset"`
	MinQuoteVolume float64       `yaml:"min_quote_volume"`
	MinTradeCount  float64       `yaml:"min_trade_count"`
	Symbols        []string      `yaml:"symbols"`
	Exclude        []string      `yaml:"exclude"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheFile      string        `yaml:"cache_file"`
	CoinGeckoURL   string        `yaml:"coingecko_url"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MarketConfig struct {
	Provider   string `yaml:"provider"` // tradingview, binance
	Exchange   string `yaml:"exchange"`
	Screener   string `yaml:"screener"`
	ScannerURL string `yaml:"scanner_url"`

	// TradingView column names used for the fast/slow moving averages
	FastMAColumn string `yaml:"fast_ma_column"`
	SlowMAColumn string `yaml:"slow_ma_column"`

	// Periods used when indicators are computed from klines
	KlineLimit    int `yaml:"kline_limit"`
	FastEMAPeriod int `yaml:"fast_ema_period"`
	SlowEMAPeriod int `yaml:"slow_ema_period"`
}

// TimeframeProfile holds the per-timeframe RSI thresholds
type TimeframeProfile struct {
	Interval     string  `yaml:"interval"`
	RSIBuyBelow  float64 `yaml:"rsi_buy_below"`
	RSISellAbove float64 `yaml:"rsi_sell_above"`
}

type StrategyConfig struct {
	Entry TimeframeProfile `yaml:"entry"`
	Trend TimeframeProfile `yaml:"trend"`

	BuyScoreThreshold  float64 `yaml:"buy_score_threshold"`
	SellScoreThreshold float64 `yaml:"sell_score_threshold"`
	RequireDominance   bool    `yaml:"require_dominance"`

	ADXMin    float64            `yaml:"adx_min"`
	StochLow  float64            `yaml:"stoch_low"`
	StochHigh float64            `yaml:"stoch_high"`
	Weights   map[string]float64 `yaml:"weights"`
}

// Timeframes returns the configured timeframes, entry first
func (s StrategyConfig) Timeframes() []string {
	tfs := []string{s.Entry.Interval}
	if s.Trend.Interval != "" && s.Trend.Interval != s.Entry.Interval {
		tfs = append(tfs, s.Trend.Interval)
	}
	return tfs
}

type RiskConfig struct {
	StopMode            string        `yaml:"stop_mode"` // percent, atr
	StopLossPercent     float64       `yaml:"stop_loss_percent"`
	TakeProfitPercent   float64       `yaml:"take_profit_percent"`
	ATRMultiplier       float64       `yaml:"atr_multiplier"`
	RiskReward          float64       `yaml:"risk_reward"`
	TrailingStopEnabled bool          `yaml:"trailing_stop_enabled"`
	TrailingStopPercent float64       `yaml:"trailing_stop_percent"`
	MaxHold             time.Duration `yaml:"max_hold"`
}

type Ticker struct {
	Symbol             string
	PriceChangePercent float64
	LastPrice          float64
	Volume             float64
	QuoteVolume        float64
	TradeCount         float64
}

type Kline struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Indicator names a numeric value inside a Snapshot
type Indicator string

const (
	IndClose      Indicator = "close"
	IndRSI        Indicator = "rsi"
	IndMACD       Indicator = "macd"
	IndMACDSignal Indicator = "macd_signal"
	IndADX        Indicator = "adx"
	IndOBV        Indicator = "obv"
	IndBBUpper    Indicator = "bb_upper"
	IndBBLower    Indicator = "bb_lower"
	IndATR        Indicator = "atr"
	IndStochK     Indicator = "stoch_k"
	IndStochD     Indicator = "stoch_d"
	IndMAFast     Indicator = "ma_fast"
	IndMASlow     Indicator = "ma_slow"
	IndSupport    Indicator = "support"
	IndResistance Indicator = "resistance"
)

// Snapshot is one indicator sample for a symbol on a timeframe.
// Missing indicators are simply absent from Values.
type Snapshot struct {
	Symbol         string
	Timeframe      string
	Values         map[Indicator]float64
	Recommendation Recommendation
	FetchedAt      time.Time
}

func (s Snapshot) Value(ind Indicator) (float64, bool) {
	v, ok := s.Values[ind]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (s Snapshot) Price() (float64, bool) {
	p, ok := s.Value(IndClose)
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}

type ScoreResult struct {
	BuyScore    float64
	SellScore   float64
	BuyReasons  []string
	SellReasons []string
}

// Position is one open simulated trade, persisted in the position file
type Position struct {
	Symbol             string    `json:"-"`
	EntryPrice         float64   `json:"entry_price"`
	EntryTime          time.Time `json:"entry_time"`
	StopLoss           float64   `json:"stop_loss"`
	TakeProfit         float64   `json:"take_profit"`
	HighestPrice       float64   `json:"highest_price"`
	TrailingStopActive bool      `json:"trailing_stop_active"`
	TrailingStop       float64   `json:"trailing_stop,omitempty"`
}

type PositionState string

const (
	StateNoPosition   PositionState = "NO_POSITION"
	StateOpen         PositionState = "OPEN"
	StateOpenTrailing PositionState = "OPEN_TRAILING"
)

func (p *Position) State() PositionState {
	if p == nil {
		return StateNoPosition
	}
	if p.TrailingStopActive {
		return StateOpenTrailing
	}
	return StateOpen
}

func (p Position) PnLPercent(exitPrice float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (exitPrice - p.EntryPrice) / p.EntryPrice * 100
}

func (p Position) Held(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

type Action string

const (
	ActionNone         Action = "NONE"
	ActionBuy          Action = "BUY"
	ActionHold         Action = "HOLD"
	ActionTakeProfit   Action = "TAKE_PROFIT"
	ActionStopLoss     Action = "STOP_LOSS"
	ActionTrailingStop Action = "TRAILING_STOP"
	ActionExpired      Action = "EXPIRED"
	ActionSell         Action = "SELL"
)

// IsExit reports whether the action closes a position. TAKE_PROFIT only
// closes when trailing is disabled, so callers check Signal.Closed instead.
func (a Action) IsExit() bool {
	switch a {
	case ActionStopLoss, ActionTrailingStop, ActionExpired, ActionSell:
		return true
	}
	return false
}

// Notifiable reports whether the action should produce a message
func (a Action) Notifiable() bool {
	return a != ActionNone && a != ActionHold && a != ""
}

type Signal struct {
	Symbol    string
	Action    Action
	Price     float64
	Timestamp time.Time
	Score     ScoreResult
	Reason    string

	// Set for BUY, HOLD and TAKE_PROFIT
	StopLoss     float64
	TakeProfit   float64
	TrailingStop float64

	// Set for BUY when the entry snapshot has pivot levels
	Support    float64
	Resistance float64

	// Set when the position was closed
	Closed     bool
	EntryPrice float64
	PnLPercent float64
	Held       time.Duration
}
