package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"TrendScout/internal/model"
)

// MaxHeadlines is the number of articles listed under a signal.
const MaxHeadlines = 3

// FormatSignal formats a signal with its news context into a Telegram
// HTML message.
func FormatSignal(sig *model.Signal, summary model.SentimentSummary, articles []model.Article) string {
	var b strings.Builder

	icon := "📈"
	if sig.Trend == model.TrendDown {
		icon = "📉"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n", icon, html.EscapeString(sig.Symbol), html.EscapeString(sig.Timeframe)))
	b.WriteString(fmt.Sprintf("Signal: <b>%s</b>\n\n", sig.Trend.Side()))

	b.WriteString(fmt.Sprintf("Entry: %s\n", FormatPrice(sig.EntryPrice, sig.PricePrecision)))
	b.WriteString(fmt.Sprintf("🎯 Take Profit: %s\n", FormatPrice(sig.TakeProfit, sig.PricePrecision)))
	b.WriteString(fmt.Sprintf("🛑 Stop Loss: %s\n", FormatPrice(sig.StopLoss, sig.PricePrecision)))
	b.WriteString(fmt.Sprintf("ATR(14): %s", FormatPrice(sig.ATR, sig.PricePrecision)))
	if !math.IsNaN(sig.RSI) {
		b.WriteString(fmt.Sprintf(" | RSI(14): %.1f", sig.RSI))
	}
	if !math.IsNaN(sig.CCI) {
		b.WriteString(fmt.Sprintf(" | CCI(14): %.0f", sig.CCI))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("📰 <b>News:</b> 👍 %d positive / 👎 %d negative\n", summary.Positive, summary.Negative))
	shown := 0
	for _, a := range articles {
		if shown == MaxHeadlines {
			break
		}
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		if a.URL != "" {
			b.WriteString(fmt.Sprintf("- <a href=\"%s\">%s</a>\n", html.EscapeString(a.URL), html.EscapeString(title)))
		} else {
			b.WriteString(fmt.Sprintf("- %s (No URL provided)\n", html.EscapeString(title)))
		}
		shown++
	}
	if shown == 0 {
		b.WriteString("- No recent articles\n")
	}

	return b.String()
}

// FormatPrice renders v with the instrument's price precision. A negative
// precision falls back to at most 8 decimal places.
func FormatPrice(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v)
	if precision < 0 {
		return d.Round(8).String()
	}
	return d.StringFixed(int32(precision))
}

// FormatStats formats the ledger counters for the stats report.
func FormatStats(stats model.SignalStats, symbols int, startedAt, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 <b>TrendScout stats</b>\n\n")
	b.WriteString(fmt.Sprintf("Running since: %s (%s)\n",
		startedAt.UTC().Format("2006-01-02 15:04 MST"), humanize.RelTime(startedAt, now, "ago", "from now")))
	b.WriteString(fmt.Sprintf("Signals: %d (%d symbols)\n", stats.TotalSignals, symbols))
	b.WriteString(fmt.Sprintf("Take profit: %d | Stop loss: %d | Pending: %d\n",
		stats.HitTakeProfit, stats.HitStopLoss, stats.Pending()))
	if closed := stats.HitTakeProfit + stats.HitStopLoss; closed > 0 {
		b.WriteString(fmt.Sprintf("Hit rate: %.1f%%\n", float64(stats.HitTakeProfit)/float64(closed)*100))
	}
	return b.String()
}

// FormatRecent lists recently emitted signals, newest first.
func FormatRecent(signals []model.Signal, now time.Time) string {
	if len(signals) == 0 {
		return "No signals yet."
	}
	var b strings.Builder
	b.WriteString("🕒 <b>Recent signals</b>\n\n")
	for _, s := range signals {
		b.WriteString(fmt.Sprintf("%s %s <b>%s</b> @ %s (%s)\n",
			html.EscapeString(s.Symbol), html.EscapeString(s.Timeframe), s.Trend.Side(),
			FormatPrice(s.EntryPrice, s.PricePrecision),
			humanize.RelTime(s.GeneratedAt, now, "ago", "from now")))
	}
	return b.String()
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "Commands:\n/stats - signal statistics\n/recent - last signals\n/ping - liveness check"
}
