// Package engine owns the trading-session lifecycle and all position
// bookkeeping. Positions are mutated nowhere else; other components only
// read copies.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shadiayoub/okx-bot/internal/exchange"
	"github.com/shadiayoub/okx-bot/internal/model"
	"github.com/shadiayoub/okx-bot/internal/recorder"
	"github.com/shadiayoub/okx-bot/internal/risk"
)

// Notifier delivers operator alerts. Implementations must not block the
// trading path.
type Notifier interface {
	Notify(text string)
}

// Options tune the engine's failure handling.
type Options struct {
	OrderTimeout  time.Duration // bounds each exchange call
	MaxRetries    int           // retry budget for retryable exchange errors
	EscalateAfter int           // consecutive protection failures before alerting
}

// DefaultOptions returns the standard failure-handling parameters.
func DefaultOptions() Options {
	return Options{
		OrderTimeout:  15 * time.Second,
		MaxRetries:    3,
		EscalateAfter: 3,
	}
}

// Engine applies order plans against the exchange and supervises the
// resulting positions until exit.
type Engine struct {
	orders  exchange.OrderAPI
	session *Session
	rec     recorder.Recorder
	notify  Notifier
	opts    Options

	mu        sync.Mutex
	positions map[string]*model.Position
	symLocks  map[string]*sync.Mutex
}

// New builds an engine around the order boundary. rec and notify may be
// the noop implementations but never nil.
func New(orders exchange.OrderAPI, session *Session, rec recorder.Recorder, notify Notifier, opts Options) *Engine {
	return &Engine{
		orders:    orders,
		session:   session,
		rec:       rec,
		notify:    notify,
		opts:      opts,
		positions: make(map[string]*model.Position),
		symLocks:  make(map[string]*sync.Mutex),
	}
}

// Session exposes the session for the operator control surface.
func (e *Engine) Session() *Session { return e.session }

// Position returns a copy of the open position for the symbol, or nil.
func (e *Engine) Position(symbol string) *model.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[symbol]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Positions returns copies of all open positions.
func (e *Engine) Positions() []model.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	return out
}

// symbolLock serializes all position-slot operations for one symbol.
// Different symbols proceed in parallel.
func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symLocks[symbol] = l
	}
	return l
}

// Apply executes a plan atomically with respect to the symbol's position
// slot. A close-then-reverse plan is fail-forward: once the close leg
// succeeds the old position is gone for good, and a failed reopen leaves
// the book flat rather than rolling anything back.
func (e *Engine) Apply(ctx context.Context, plan *risk.Plan) error {
	if e.session.Status() != model.StatusRunning {
		return fmt.Errorf("session is %s, not placing orders", e.session.Status())
	}

	lock := e.symbolLock(plan.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if plan.CloseFirst {
		if err := e.closeLocked(ctx, plan.Symbol, "reverse"); err != nil {
			return fmt.Errorf("close leg of reverse for %s: %w", plan.Symbol, err)
		}
	} else if e.Position(plan.Symbol) != nil {
		// One active position per symbol; the sizer should have declined.
		return fmt.Errorf("position slot for %s already occupied", plan.Symbol)
	}

	result, err := e.placeEntry(ctx, plan)
	if err != nil {
		e.recordOrder(plan, 0, "entry", "failed", err.Error())
		return err
	}

	entryPrice := result.FillPrice
	if entryPrice == 0 {
		entryPrice = plan.EntryPrice
	}

	pos := &model.Position{
		Symbol:     plan.Symbol,
		Side:       plan.Side,
		Size:       plan.Size,
		EntryPrice: entryPrice,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		OpenedAt:   time.Now(),
	}

	e.mu.Lock()
	e.positions[plan.Symbol] = pos
	e.mu.Unlock()

	e.recordOrder(plan, entryPrice, "entry", "filled", result.OrderID)
	log.Printf("[INFO] %s %s opened: size=%v entry=%.4f sl=%.4f tp=%.4f",
		plan.Symbol, plan.Side, plan.Size, entryPrice, plan.StopLoss, plan.TakeProfit)
	e.notify.Notify(fmt.Sprintf("📈 %s %s opened at %.4f (size %v, score %.3f)",
		plan.Symbol, plan.Side, entryPrice, plan.Size, plan.Signal.Score))

	if err := e.protect(ctx, pos); err != nil {
		e.markUnprotected(pos.Symbol, err)
	}
	return nil
}

// placeEntry submits the entry order, retrying retryable exchange errors
// with exponential backoff up to the configured budget.
func (e *Engine) placeEntry(ctx context.Context, plan *risk.Plan) (exchange.OrderResult, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			log.Printf("[WARN] retrying %s entry (attempt %d/%d) in %v: %v",
				plan.Symbol, attempt+1, e.opts.MaxRetries+1, backoff, lastErr)
			select {
			case <-ctx.Done():
				return exchange.OrderResult{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.OrderTimeout)
		result, err := e.orders.PlaceOrder(callCtx, plan.Symbol, plan.Side, plan.Size)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return exchange.OrderResult{}, err
		}
	}
	return exchange.OrderResult{}, fmt.Errorf("entry retries exhausted: %w", lastErr)
}

// retryable treats timeouts like retryable exchange errors; only an
// explicit non-retryable ExchangeError or cancellation stops the loop.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return model.IsRetryable(err)
}

// protect places the dependent stop-loss/take-profit orders for a
// freshly opened position.
func (e *Engine) protect(ctx context.Context, pos *model.Position) error {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.OrderTimeout)
	defer cancel()
	return e.orders.PlaceStopOrders(callCtx, pos.Symbol, pos.Side.Opposite(), pos.Size, pos.StopLoss, pos.TakeProfit)
}

func (e *Engine) markUnprotected(symbol string, cause error) {
	e.mu.Lock()
	pos, ok := e.positions[symbol]
	if ok {
		pos.Unprotected = true
		pos.ProtectFailures++
	}
	var failures int
	if ok {
		failures = pos.ProtectFailures
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	log.Printf("[ERROR] %s position unprotected (%d consecutive failures): %v", symbol, failures, cause)
	if failures >= e.opts.EscalateAfter {
		msg := fmt.Sprintf("🚨 %s position has no stop-loss/take-profit after %d attempts: %v", symbol, failures, cause)
		e.notify.Notify(msg)
		if err := e.rec.RecordAlert("unprotected_position", msg); err != nil {
			log.Printf("[ERROR] record alert: %v", err)
		}
	}
}

// RetryProtection re-attempts stop-order placement for every unprotected
// position. The scheduler calls this at the start of each tick.
func (e *Engine) RetryProtection(ctx context.Context) {
	e.mu.Lock()
	var pending []model.Position
	for _, p := range e.positions {
		if p.Unprotected {
			pending = append(pending, *p)
		}
	}
	e.mu.Unlock()

	for _, p := range pending {
		if err := e.protect(ctx, &p); err != nil {
			e.markUnprotected(p.Symbol, err)
			continue
		}
		e.mu.Lock()
		if cur, ok := e.positions[p.Symbol]; ok {
			cur.Unprotected = false
			cur.ProtectFailures = 0
		}
		e.mu.Unlock()
		log.Printf("[INFO] %s protection orders placed on retry", p.Symbol)
	}
}

// Close closes the symbol's position (operator command or exit fill).
func (e *Engine) Close(ctx context.Context, symbol, reason string) error {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()
	return e.closeLocked(ctx, symbol, reason)
}

// closeLocked closes the position while the symbol lock is held. Closing
// a symbol with no position is a no-op.
func (e *Engine) closeLocked(ctx context.Context, symbol, reason string) error {
	e.mu.Lock()
	pos, ok := e.positions[symbol]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.OrderTimeout)
	result, err := e.orders.ClosePosition(callCtx, symbol)
	cancel()
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.positions, symbol)
	e.mu.Unlock()

	pnl := &model.RealizedPnL{
		Symbol:     symbol,
		Side:       pos.Side,
		Size:       pos.Size,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  result.ExitPrice,
		PnL:        pos.UnrealizedAt(result.ExitPrice),
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   time.Now(),
	}
	if err := e.rec.RecordPnL(pnl); err != nil {
		log.Printf("[ERROR] record pnl for %s: %v", symbol, err)
	}
	log.Printf("[INFO] %s %s closed (%s): exit=%.4f pnl=%+.4f", symbol, pos.Side, reason, result.ExitPrice, pnl.PnL)
	e.notify.Notify(fmt.Sprintf("📉 %s %s closed at %.4f, P&L %+.2f (%s)", symbol, pos.Side, result.ExitPrice, pnl.PnL, reason))
	return nil
}

// CloseAll force-closes every open position, best effort: a failure on
// one symbol does not stop the rest.
func (e *Engine) CloseAll(ctx context.Context, reason string) {
	for _, p := range e.Positions() {
		if err := e.Close(ctx, p.Symbol, reason); err != nil {
			log.Printf("[ERROR] force-close %s: %v", p.Symbol, err)
		}
	}
}

// EmergencyStop halts the session immediately, preempting any in-flight
// tick, and best-effort-cancels by letting the cancelled context fail
// the remaining placements.
func (e *Engine) EmergencyStop() {
	e.session.EmergencyStop()
	e.notify.Notify("🛑 EMERGENCY STOP: trading halted, orders preempted")
	if err := e.rec.RecordAlert("emergency_stop", "trading halted by operator"); err != nil {
		log.Printf("[ERROR] record alert: %v", err)
	}
}

// Reset leaves EMERGENCY_STOPPED for STOPPED, force-closing all open
// positions first. The session stays EMERGENCY_STOPPED while any
// position resists closing; the operator retries once the venue
// recovers.
func (e *Engine) Reset(ctx context.Context) error {
	if e.session.Status() != model.StatusEmergencyStopped {
		return fmt.Errorf("reset requires EMERGENCY_STOPPED, session is %s", e.session.Status())
	}
	e.CloseAll(ctx, "emergency")
	if remaining := e.Positions(); len(remaining) > 0 {
		msg := fmt.Sprintf("⚠️ reset refused: %d position(s) failed to close, still EMERGENCY_STOPPED", len(remaining))
		e.notify.Notify(msg)
		if err := e.rec.RecordAlert("reset_refused", msg); err != nil {
			log.Printf("[ERROR] record alert: %v", err)
		}
		return fmt.Errorf("%d position(s) failed to close", len(remaining))
	}
	return e.session.Reset()
}

func (e *Engine) recordOrder(plan *risk.Plan, price float64, kind, status, detail string) {
	if err := e.rec.RecordOrder(&recorder.OrderRecord{
		Symbol:   plan.Symbol,
		Side:     plan.Side,
		Size:     plan.Size,
		Price:    price,
		Notional: plan.Notional,
		Kind:     kind,
		Status:   status,
		Detail:   detail,
	}); err != nil {
		log.Printf("[ERROR] record order for %s: %v", plan.Symbol, err)
	}
}
