// File: cmd/bot/app.go
// ============================================
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/bot"
	rediscache "crypto-signal-bot/internal/cache/redis"
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/metrics"
	"crypto-signal-bot/internal/notify"
	"crypto-signal-bot/internal/pairs"
	"crypto-signal-bot/internal/runlock"
	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/pkg/types"
)

const runLockName = "run"

// app holds the wired dependencies shared by run and watch
type app struct {
	cfg      *types.Config
	logger   *slog.Logger
	bot      *bot.Bot
	metrics  *metrics.Recorder
	fileLock *runlock.FileLock
	redis    *rediscache.Client
	locker   *rediscache.Locker
}

func newApp(ctx context.Context, cfg *types.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		fileLock: runlock.NewFileLock(cfg.Store.Path+".lock", cfg.Store.LockStaleAfter),
	}

	if cfg.Redis.Enabled {
		client, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.locker = rediscache.NewLocker(client)
	}

	exchange := binance.NewClient(
		cfg.Binance.APIKey,
		cfg.Binance.SecretKey,
		cfg.Binance.BaseURL,
		cfg.Binance.Testnet,
		cfg.HTTP.Timeout,
	)

	var provider market.Provider
	switch cfg.Market.Provider {
	case "binance":
		provider = market.NewKlines(exchange, cfg.Market)
	default:
		provider = market.NewTradingView(cfg.Market, cfg.HTTP.Timeout)
	}

	engine := strategy.NewEngine(cfg.Strategy)

	a.bot = bot.New(cfg, provider, a.pairSelector(exchange), engine, a.notifier(), a.metrics, logger)
	return a, nil
}

func (a *app) pairSelector(exchange *binance.Client) bot.PairSelector {
	var source pairs.Selector
	switch a.cfg.Pairs.Source {
	case "static":
		return pairs.StaticSource{Symbols: a.cfg.Pairs.Symbols}
	case "coingecko":
		source = pairs.NewCoinGeckoSource(a.cfg.Pairs, a.cfg.HTTP.Timeout)
	default:
		source = pairs.NewBinanceSource(exchange, a.cfg.Pairs)
	}

	var cache pairs.Cache = pairs.NewFileCache(a.cfg.Pairs.CacheFile)
	if a.redis != nil {
		cache = rediscache.NewPairCache(a.redis, a.cfg.Pairs.CacheTTL)
	}
	return pairs.NewCached(source, cache, a.cfg.Pairs.CacheTTL, a.logger)
}

func (a *app) notifier() *notify.Notifier {
	var senders []notify.Sender
	if a.cfg.Telegram.Enabled && a.cfg.Telegram.BotToken != "" {
		senders = append(senders, notify.NewTelegramSender(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.HTTP.Timeout))
	} else {
		a.logger.Warn("⚠️ Telegram notifications disabled")
	}
	if a.cfg.Discord.WebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Discord.WebhookURL, a.cfg.HTTP.Timeout))
	}
	return notify.NewNotifier(senders, a.logger)
}

// cycle runs the bot once under the run locks. A held lock skips the cycle.
func (a *app) cycle(ctx context.Context) error {
	release, err := a.acquire(ctx)
	if errors.Is(err, runlock.ErrLocked) || errors.Is(err, rediscache.ErrLockHeld) {
		a.logger.Warn("⏳ previous run still in progress, skipping cycle", slog.String("error", err.Error()))
		return nil
	}
	if err != nil {
		return err
	}
	defer release()

	_, err = a.bot.RunOnce(ctx)
	return err
}

func (a *app) acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	releaseFile, err := a.fileLock.Acquire()
	if err != nil {
		return nil, err
	}
	if a.locker == nil {
		return releaseFile, nil
	}

	releaseRedis, err := a.locker.Acquire(ctx, runLockName, a.cfg.Store.LockStaleAfter)
	if err != nil {
		releaseFile()
		return nil, err
	}
	return func() {
		releaseRedis()
		releaseFile()
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
}
