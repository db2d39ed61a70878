package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shadiayoub/okx-bot/internal/engine"
	"github.com/shadiayoub/okx-bot/internal/exchange"
)

// PriceSource reports the live price for a symbol, when one is known.
type PriceSource interface {
	Price(symbol string) (float64, bool)
}

// CommandRouter maps operator commands to engine and session operations.
type CommandRouter struct {
	Engine  *engine.Engine
	Account exchange.AccountAPI
	Prices  PriceSource
}

// Handle dispatches a single command and returns the reply text.
func (r *CommandRouter) Handle(command string) string {
	// Strip a bot mention suffix like /status@my_bot.
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	sess := r.Engine.Session()

	switch cmd {
	case "/status":
		return r.statusReport()
	case "/positions":
		return r.positionsReport()
	case "/start":
		if err := sess.Start(); err != nil {
			return fmt.Sprintf("⚠️ cannot start: %v", err)
		}
		return "🟢 Trading started"
	case "/stop":
		if err := sess.Stop(); err != nil {
			return fmt.Sprintf("⚠️ cannot stop: %v", err)
		}
		return "⚪ Trading stopped (open positions untouched)"
	case "/pause":
		if err := sess.Pause(); err != nil {
			return fmt.Sprintf("⚠️ cannot pause: %v", err)
		}
		return "🟡 Trading paused"
	case "/resume":
		if err := sess.Resume(); err != nil {
			return fmt.Sprintf("⚠️ cannot resume: %v", err)
		}
		return "🟢 Trading resumed"
	case "/emergency":
		r.Engine.EmergencyStop()
		return "" // the engine already sends the emergency alert
	case "/reset":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Engine.Reset(ctx); err != nil {
			return fmt.Sprintf("⚠️ reset failed: %v", err)
		}
		return "⚪ Reset complete: positions closed, session re-armed"
	case "/help":
		return FormatHelp()
	default:
		if strings.HasPrefix(cmd, "/") {
			return "Unknown command. " + FormatHelp()
		}
		return ""
	}
}

func (r *CommandRouter) statusReport() string {
	sess := r.Engine.Session()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	account, err := r.Account.State(ctx)
	if err != nil {
		log.Printf("[WARN] status report: account state: %v", err)
	}
	return FormatStatus(sess.Status(), sess.Settings(), account, len(r.Engine.Positions()))
}

func (r *CommandRouter) positionsReport() string {
	positions := r.Engine.Positions()
	prices := make(map[string]float64, len(positions))
	if r.Prices != nil {
		for _, p := range positions {
			if price, ok := r.Prices.Price(p.Symbol); ok {
				prices[p.Symbol] = price
			}
		}
	}
	return FormatPositions(positions, prices)
}
