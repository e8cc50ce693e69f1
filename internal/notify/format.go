// File: internal/notify/format.go
// ============================================
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"crypto-signal-bot/pkg/types"
)

const divider = "━━━━━━━━━━━━━━━━━━━━"

// Summary describes one finished run
type Summary struct {
	Evaluated     int
	Skipped       int
	Signals       []types.Signal
	OpenPositions int
	Duration      time.Duration
}

// FormatSignal renders a signal as a title and an HTML body
func FormatSignal(sig types.Signal) (string, string) {
	var b strings.Builder

	switch {
	case sig.Action == types.ActionBuy:
		title := fmt.Sprintf("📈 BUY SIGNAL %s", sig.Symbol)
		fmt.Fprintf(&b, "💎 <b>%s</b>\n", sig.Symbol)
		fmt.Fprintf(&b, "💰 Entry: <code>$%s</code>\n", formatPrice(sig.Price))
		fmt.Fprintf(&b, "🛑 Stop Loss: <code>$%s</code> (%s)\n", formatPrice(sig.StopLoss), percentFrom(sig.Price, sig.StopLoss))
		fmt.Fprintf(&b, "🎯 Take Profit: <code>$%s</code> (%s)\n", formatPrice(sig.TakeProfit), percentFrom(sig.Price, sig.TakeProfit))
		if sig.Support > 0 {
			fmt.Fprintf(&b, "🧱 Support: <code>$%s</code>\n", formatPrice(sig.Support))
		}
		if sig.Resistance > 0 {
			fmt.Fprintf(&b, "🚧 Resistance: <code>$%s</code>\n", formatPrice(sig.Resistance))
		}
		writeScore(&b, sig.Score, sig.Score.BuyReasons)
		b.WriteString("\n" + divider + "\n")
		b.WriteString("⚠️ <b>PAPER TRADE</b>, no order was placed")
		return title, b.String()

	case sig.Action == types.ActionTakeProfit && !sig.Closed:
		title := fmt.Sprintf("🎯 TAKE PROFIT %s", sig.Symbol)
		fmt.Fprintf(&b, "💎 <b>%s</b>\n", sig.Symbol)
		fmt.Fprintf(&b, "💰 Price: <code>$%s</code> (%s)\n", formatPrice(sig.Price), percentFrom(sig.EntryPrice, sig.Price))
		fmt.Fprintf(&b, "📍 Entry: <code>$%s</code>\n", formatPrice(sig.EntryPrice))
		fmt.Fprintf(&b, "🔒 Trailing Stop: <code>$%s</code>\n", formatPrice(sig.TrailingStop))
		if sig.Reason != "" {
			fmt.Fprintf(&b, "\n💡 %s", html.EscapeString(sig.Reason))
		}
		return title, b.String()

	case sig.Closed:
		emoji := "✅"
		if sig.PnLPercent < 0 {
			emoji = "❌"
		}
		title := fmt.Sprintf("%s %s %s", emoji, actionLabel(sig.Action), sig.Symbol)
		fmt.Fprintf(&b, "💎 <b>%s</b>\n", sig.Symbol)
		fmt.Fprintf(&b, "📍 Entry: <code>$%s</code>\n", formatPrice(sig.EntryPrice))
		fmt.Fprintf(&b, "🏁 Exit: <code>$%s</code>\n", formatPrice(sig.Price))
		fmt.Fprintf(&b, "📊 PnL: <b>%+.2f%%</b>\n", sig.PnLPercent)
		fmt.Fprintf(&b, "⏱ Held: %s\n", formatHeld(sig.Held))
		if sig.Reason != "" {
			fmt.Fprintf(&b, "\n💡 Reason: %s", html.EscapeString(sig.Reason))
		}
		if sig.Action == types.ActionSell {
			writeScore(&b, sig.Score, sig.Score.SellReasons)
		}
		return title, b.String()
	}

	title := fmt.Sprintf("%s %s", sig.Action, sig.Symbol)
	fmt.Fprintf(&b, "💎 <b>%s</b> at <code>$%s</code>", sig.Symbol, formatPrice(sig.Price))
	return title, b.String()
}

// FormatSummary renders the end-of-run report
func FormatSummary(s Summary) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "🔎 Evaluated: <b>%d</b>\n", s.Evaluated)
	fmt.Fprintf(&b, "⏭ Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "📂 Open Positions: <b>%d</b>\n", s.OpenPositions)
	fmt.Fprintf(&b, "⏱ Duration: %s\n", s.Duration.Round(time.Millisecond))

	if len(s.Signals) == 0 {
		b.WriteString("\nNo signals this run")
		return "📊 Run Summary", b.String()
	}

	b.WriteString("\n<b>Signals:</b>\n")
	for _, sig := range s.Signals {
		line := fmt.Sprintf("• %s %s @ $%s", sig.Symbol, actionLabel(sig.Action), formatPrice(sig.Price))
		if sig.Closed {
			line += fmt.Sprintf(" (%+.2f%%)", sig.PnLPercent)
		}
		b.WriteString(line + "\n")
	}
	return "📊 Run Summary", strings.TrimRight(b.String(), "\n")
}

func writeScore(b *strings.Builder, score types.ScoreResult, reasons []string) {
	fmt.Fprintf(b, "\n<b>📋 SCORE:</b> buy %.1f / sell %.1f\n", score.BuyScore, score.SellScore)
	for _, r := range reasons {
		fmt.Fprintf(b, "<code>%s</code>\n", html.EscapeString(r))
	}
}

func actionLabel(a types.Action) string {
	switch a {
	case types.ActionStopLoss:
		return "STOP LOSS"
	case types.ActionTrailingStop:
		return "TRAILING STOP"
	case types.ActionTakeProfit:
		return "TAKE PROFIT"
	case types.ActionExpired:
		return "EXPIRED"
	case types.ActionSell:
		return "SELL SIGNAL"
	}
	return string(a)
}

// formatPrice keeps small-cap prices readable
func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

func percentFrom(base, target float64) string {
	if base <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", (target-base)/base*100)
}

func formatHeld(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours >= 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
