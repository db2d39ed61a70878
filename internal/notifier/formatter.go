package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// FormatStatus renders the session status report for /status.
func FormatStatus(status model.SessionStatus, settings model.SessionSettings, account model.AccountState, openPositions int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Session Status</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("State: <b>%s</b>\n", statusLabel(status)))
	b.WriteString(fmt.Sprintf("Auto-trading: %s\n\n", onOff(settings.AutoTrading)))

	b.WriteString(fmt.Sprintf("Balance: %.2f USDT (available %.2f)\n", account.TotalBalance, account.AvailableBalance))
	b.WriteString(fmt.Sprintf("Unrealized P&L: %+.2f USDT\n", account.UnrealizedPnL))
	b.WriteString(fmt.Sprintf("Open positions: %d\n\n", openPositions))

	b.WriteString(fmt.Sprintf("Leverage: %.0fx | Risk/trade: %.1f%%\n", settings.Leverage, settings.RiskPerTrade*100))
	b.WriteString(fmt.Sprintf("Min signal: %.2f |SL %.1f%% / TP %.1f%%\n",
		settings.MinSignalStrength, settings.StopLossPct*100, settings.TakeProfitPct*100))

	return b.String()
}

// FormatPositions renders the open-position list for /positions.
func FormatPositions(positions []model.Position, prices map[string]float64) string {
	if len(positions) == 0 {
		return "📦 No open positions"
	}

	var b strings.Builder
	b.WriteString("📦 <b>Open Positions</b>\n\n")
	for _, p := range positions {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> size %v @ %.4f\n", sideArrow(p.Side), p.Symbol, p.Size, p.EntryPrice))
		if price, ok := prices[p.Symbol]; ok && price > 0 {
			b.WriteString(fmt.Sprintf("   mark %.4f, uPnL %+.2f\n", price, p.UnrealizedAt(price)))
		}
		if p.Unprotected {
			b.WriteString(fmt.Sprintf("   ⚠️ unprotected (%d failed attempts)\n", p.ProtectFailures))
		} else {
			b.WriteString(fmt.Sprintf("   SL %.4f / TP %.4f\n", p.StopLoss, p.TakeProfit))
		}
		b.WriteString(fmt.Sprintf("   opened %s\n", p.OpenedAt.Format("01-02 15:04")))
	}
	return b.String()
}

// FormatHelp lists the operator commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>Commands</b>",
		"",
		"/status - session state and balance",
		"/positions - open positions",
		"/start - start trading",
		"/stop - stop trading (positions stay open)",
		"/pause - pause signal execution",
		"/resume - resume from pause",
		"/emergency - halt and preempt all orders",
		"/reset - close everything and re-arm after emergency",
	}, "\n")
}

func statusLabel(s model.SessionStatus) string {
	switch s {
	case model.StatusRunning:
		return "🟢 RUNNING"
	case model.StatusPaused:
		return "🟡 PAUSED"
	case model.StatusEmergencyStopped:
		return "🔴 EMERGENCY STOPPED"
	default:
		return "⚪ STOPPED"
	}
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func sideArrow(s model.Side) string {
	if s == model.Long {
		return "🟩"
	}
	return "🟥"
}
