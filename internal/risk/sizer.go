// Package risk converts a classified signal plus account state into an
// order plan bounded by the configured risk limits.
package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// NoOp reasons, logged and recorded with each skipped symbol.
const (
	ReasonNeutral             = "neutral_signal"
	ReasonWeakSignal          = "signal_below_minimum"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonSameSidePosition    = "position_open_same_side"
	ReasonZeroSize            = "size_rounds_to_zero"
)

// Plan is a sized order the execution engine can apply. CloseFirst marks
// a close-then-reverse compound plan: the existing opposite-side position
// is closed and the new one opened as one atomic operation against the
// symbol's position slot.
type Plan struct {
	Symbol     string
	Side       model.Side
	Size       float64
	Notional   float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	CloseFirst bool
	Signal     model.CombinedSignal
}

// Sizer holds the global limits that apply regardless of per-symbol
// configuration.
type Sizer struct {
	MinBalance     float64 // NoOp below this available balance
	MaxNotional    float64 // global notional cap per order, 0 = uncapped
	DefaultLotStep float64 // used when the symbol config carries none
}

// NewSizer applies the standard defaults.
func NewSizer(minBalance, maxNotional float64) *Sizer {
	return &Sizer{
		MinBalance:     minBalance,
		MaxNotional:    maxNotional,
		DefaultLotStep: 0.001,
	}
}

// Plan sizes an order for the fused signal, or returns a nil plan and
// the reason for declining. price is the tick-start snapshot price;
// existing is the symbol's open position, if any.
func (s *Sizer) Plan(
	sig model.CombinedSignal,
	account model.AccountState,
	sym model.SymbolConfig,
	sess model.SessionSettings,
	price float64,
	existing *model.Position,
) (*Plan, string) {
	if sig.Class == model.SignalNeutral {
		return nil, ReasonNeutral
	}
	if math.Abs(sig.Score) < sess.MinSignalStrength {
		return nil, ReasonWeakSignal
	}

	minBalance := s.MinBalance
	if sym.MinBalance > minBalance {
		minBalance = sym.MinBalance
	}
	if account.AvailableBalance <= 0 || account.AvailableBalance < minBalance {
		return nil, ReasonInsufficientBalance
	}

	side := model.Long
	if sig.Class == model.SignalSell {
		side = model.Short
	}

	closeFirst := false
	if existing != nil {
		if existing.Side == side {
			// No pyramiding: one position per symbol, same direction holds.
			return nil, ReasonSameSidePosition
		}
		closeFirst = true
	}

	notional := account.AvailableBalance * sess.RiskPerTrade * sym.RiskMultiplier
	if sym.MaxPositionSize > 0 && notional > sym.MaxPositionSize {
		notional = sym.MaxPositionSize
	}
	if s.MaxNotional > 0 && notional > s.MaxNotional {
		notional = s.MaxNotional
	}

	size := s.roundSize(notional*sess.Leverage/price, sym.LotStep)
	if size <= 0 {
		return nil, ReasonZeroSize
	}

	stopLoss, takeProfit := protectionPrices(side, price, sess.StopLossPct, sess.TakeProfitPct)

	return &Plan{
		Symbol:     sym.OKXSymbol,
		Side:       side,
		Size:       size,
		Notional:   notional,
		EntryPrice: price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		CloseFirst: closeFirst,
		Signal:     sig,
	}, ""
}

// roundSize truncates the contract size down to the lot step so the
// exchange never rejects the quantity and the notional cap is never
// exceeded by rounding up.
func (s *Sizer) roundSize(size, lotStep float64) float64 {
	step := lotStep
	if step <= 0 {
		step = s.DefaultLotStep
	}
	d := decimal.NewFromFloat(size)
	st := decimal.NewFromFloat(step)
	out, _ := d.Div(st).Floor().Mul(st).Float64()
	return out
}

// protectionPrices derives the stop-loss and take-profit levels for the
// side: a long stops below entry and takes profit above, a short the
// mirror image.
func protectionPrices(side model.Side, entry, stopPct, takePct float64) (stopLoss, takeProfit float64) {
	if side == model.Long {
		return entry * (1 - stopPct), entry * (1 + takePct)
	}
	return entry * (1 + stopPct), entry * (1 - takePct)
}
