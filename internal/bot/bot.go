// File: internal/bot/bot.go
// ============================================
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/notify"
	"crypto-signal-bot/internal/position"
	"crypto-signal-bot/internal/risk"
	"crypto-signal-bot/pkg/types"
)

// Scorer turns snapshots into a score and judges it
type Scorer interface {
	Score(snapshots []types.Snapshot) types.ScoreResult
	BuyTriggered(score types.ScoreResult) bool
	SellTriggered(score types.ScoreResult) bool
}

type PairSelector interface {
	TopPairs(ctx context.Context, n int) ([]string, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

type Metrics interface {
	ObserveSignal(action string)
	SymbolSkipped(reason string)
	NotificationFailed()
	SetOpenPositions(n int)
	ObserveRun(d time.Duration, finished time.Time)
}

// Outcome is what happened to one symbol during a run
type Outcome struct {
	Symbol  string
	Signal  types.Signal
	Err     error
	Skipped bool
}

type Report struct {
	Started       time.Time
	Finished      time.Time
	Outcomes      []Outcome
	OpenPositions int
}

// Signals returns the notifiable signals of the run
func (r Report) Signals() []types.Signal {
	var out []types.Signal
	for _, o := range r.Outcomes {
		if !o.Skipped && o.Signal.Action.Notifiable() {
			out = append(out, o.Signal)
		}
	}
	return out
}

func (r Report) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Skipped {
			n++
		}
	}
	return n
}

type Bot struct {
	config   *types.Config
	provider market.Provider
	pairs    PairSelector
	scorer   Scorer
	risk     *risk.Manager
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func New(
	config *types.Config,
	provider market.Provider,
	pairs PairSelector,
	scorer Scorer,
	notifier Notifier,
	metrics Metrics,
	logger *slog.Logger,
) *Bot {
	return &Bot{
		config:   config,
		provider: provider,
		pairs:    pairs,
		scorer:   scorer,
		risk:     risk.NewManager(config.Risk, scorer),
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "bot")),
		now:      time.Now,
	}
}

// RunOnce evaluates every candidate symbol once. Per-symbol failures are
// reported in the Outcomes; the only error is having nothing to evaluate.
func (b *Bot) RunOnce(ctx context.Context) (Report, error) {
	report := Report{Started: b.now()}

	store := position.Load(b.config.Store.Path, b.logger)

	symbols, err := b.candidates(ctx, store)
	if err != nil {
		return report, err
	}

	allowEntry := b.withinMarketHours(report.Started)
	if !allowEntry {
		b.logger.Info("🌙 outside market hours, new entries suppressed",
			slog.Int("start_hour", b.config.Schedule.MarketHours.StartHour),
			slog.Int("end_hour", b.config.Schedule.MarketHours.EndHour),
		)
	}

	b.logger.Info("📡 run started",
		slog.Int("symbols", len(symbols)),
		slog.Int("open_positions", store.Len()),
	)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			b.logger.Warn("run cancelled", slog.Int("remaining", len(symbols)-len(report.Outcomes)))
			break
		}
		report.Outcomes = append(report.Outcomes, b.processSymbol(ctx, store, symbol, allowEntry))
	}

	if err := store.Save(); err != nil {
		b.logger.Error("❌ final position save failed", slog.String("error", err.Error()))
	}

	report.Finished = b.now()
	report.OpenPositions = store.Len()

	b.metrics.SetOpenPositions(report.OpenPositions)
	b.metrics.ObserveRun(report.Finished.Sub(report.Started), report.Finished)

	b.logger.Info("✅ run finished",
		slog.Int("evaluated", len(report.Outcomes)),
		slog.Int("skipped", report.Skipped()),
		slog.Int("signals", len(report.Signals())),
		slog.Int("open_positions", report.OpenPositions),
		slog.Duration("duration", report.Finished.Sub(report.Started)),
	)

	if b.config.Telegram.NotifySummary {
		title, body := notify.FormatSummary(notify.Summary{
			Evaluated:     len(report.Outcomes),
			Skipped:       report.Skipped(),
			Signals:       report.Signals(),
			OpenPositions: report.OpenPositions,
			Duration:      report.Finished.Sub(report.Started),
		})
		if err := b.notifier.Notify(ctx, title, body); err != nil {
			b.metrics.NotificationFailed()
			b.logger.Warn("summary notification failed", slog.String("error", err.Error()))
		}
	}

	return report, nil
}

// candidates is the ranked pair list followed by every held symbol missing
// from it, without duplicates
func (b *Bot) candidates(ctx context.Context, store *position.Store) ([]string, error) {
	ranked, err := b.pairs.TopPairs(ctx, b.config.Pairs.Count)
	if err != nil {
		if store.Len() == 0 {
			return nil, fmt.Errorf("bot: select pairs: %w", err)
		}
		b.logger.Warn("pair selection failed, managing open positions only",
			slog.String("error", err.Error()),
		)
	}

	seen := make(map[string]bool, len(ranked)+store.Len())
	symbols := make([]string, 0, len(ranked)+store.Len())
	for _, s := range append(ranked, store.Symbols()...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func (b *Bot) processSymbol(ctx context.Context, store *position.Store, symbol string, allowEntry bool) Outcome {
	logger := b.logger.With(slog.String("symbol", symbol))

	snaps, err := market.FetchAll(ctx, b.provider, symbol, b.config.Strategy.Timeframes())
	if err != nil {
		reason := skipReason(err)
		b.metrics.SymbolSkipped(reason)
		logger.Warn("⚠️ symbol skipped",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return Outcome{Symbol: symbol, Err: err, Skipped: true}
	}

	score := b.scorer.Score(snaps)
	entry := snaps[0]
	price, _ := entry.Price()
	atr, hasATR := entry.Value(types.IndATR)

	var current *types.Position
	if pos, ok := store.Get(symbol); ok {
		current = &pos
	}

	decision := b.risk.Evaluate(risk.Input{
		Symbol:     symbol,
		Price:      price,
		ATR:        atr,
		HasATR:     hasATR,
		Score:      score,
		Position:   current,
		Now:        b.now(),
		AllowEntry: allowEntry,
	})
	sig := decision.Signal
	if sig.Action == types.ActionBuy {
		sig.Support, _ = entry.Value(types.IndSupport)
		sig.Resistance, _ = entry.Value(types.IndResistance)
	}

	logger.Debug("symbol evaluated",
		slog.String("state", string(current.State())),
		slog.String("action", string(sig.Action)),
		slog.Float64("price", price),
		slog.Float64("buy_score", score.BuyScore),
		slog.Float64("sell_score", score.SellScore),
	)

	if sig.Action.Notifiable() {
		b.metrics.ObserveSignal(string(sig.Action))
		logger.Info("🚨 signal",
			slog.String("action", string(sig.Action)),
			slog.Float64("price", price),
			slog.String("reason", sig.Reason),
		)

		title, body := notify.FormatSignal(sig)
		if err := b.notifier.Notify(ctx, title, body); err != nil {
			b.metrics.NotificationFailed()
			logger.Warn("notification failed, state change kept", slog.String("error", err.Error()))
		}
	}

	changed := false
	switch {
	case decision.Position != nil:
		store.Put(*decision.Position)
		changed = true
	case current != nil:
		store.Remove(symbol)
		changed = true
	}

	if changed {
		if err := store.Save(); err != nil {
			logger.Error("❌ position save failed", slog.String("error", err.Error()))
		}
	}

	return Outcome{Symbol: symbol, Signal: sig}
}

// withinMarketHours checks the configured UTC window. A window whose end is
// before its start wraps around midnight.
func (b *Bot) withinMarketHours(t time.Time) bool {
	mh := b.config.Schedule.MarketHours
	if !mh.Enabled {
		return true
	}

	hour := t.UTC().Hour()
	if mh.StartHour <= mh.EndHour {
		return hour >= mh.StartHour && hour < mh.EndHour
	}
	return hour >= mh.StartHour || hour < mh.EndHour
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, market.ErrSymbolNotFound):
		return "not_found"
	case errors.Is(err, market.ErrIncompleteSnapshot):
		return "incomplete"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "fetch_error"
	}
}
