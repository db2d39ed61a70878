package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadiayoub/okx-bot/internal/model"
)

func testSession() model.SessionSettings {
	return model.SessionSettings{
		AutoTrading:       true,
		Leverage:          10,
		RiskPerTrade:      0.05,
		MinSignalStrength: 0.3,
		StopLossPct:       0.02,
		TakeProfitPct:     0.04,
	}
}

func testSymbol() model.SymbolConfig {
	return model.SymbolConfig{
		OKXSymbol:      "BTC-USDT-SWAP",
		ModelSymbol:    "BTCUSDT",
		Enabled:        true,
		RiskMultiplier: 1.0,
		LotStep:        0.001,
	}
}

func buySignal(score float64) model.CombinedSignal {
	return model.CombinedSignal{Score: score, Class: model.SignalBuy, Threshold: 0.3}
}

func TestPlanNotionalScenario(t *testing.T) {
	// $1000 balance, 5% risk, 10x leverage, 1.0 multiplier at $50000:
	// notional $50, size 0.01 contracts.
	s := NewSizer(10, 0)
	account := model.AccountState{AvailableBalance: 1000}

	plan, reason := s.Plan(buySignal(0.5), account, testSymbol(), testSession(), 50000, nil)
	require.NotNil(t, plan, "unexpected no-op: %s", reason)
	assert.InDelta(t, 50.0, plan.Notional, 1e-9)
	assert.InDelta(t, 0.01, plan.Size, 1e-12)
	assert.Equal(t, model.Long, plan.Side)
	assert.InDelta(t, 49000.0, plan.StopLoss, 1e-6)
	assert.InDelta(t, 52000.0, plan.TakeProfit, 1e-6)
	assert.False(t, plan.CloseFirst)
}

func TestPlanWeakSignalIsNoOp(t *testing.T) {
	s := NewSizer(10, 0)
	account := model.AccountState{AvailableBalance: 1_000_000}

	plan, reason := s.Plan(buySignal(0.25), account, testSymbol(), testSession(), 50000, nil)
	assert.Nil(t, plan, "score 0.25 below min_signal_strength 0.3 must not trade")
	assert.Equal(t, ReasonWeakSignal, reason)
}

func TestPlanNeutralIsNoOp(t *testing.T) {
	s := NewSizer(10, 0)
	sig := model.CombinedSignal{Score: 0.9, Class: model.SignalNeutral, Threshold: 0.3}
	plan, reason := s.Plan(sig, model.AccountState{AvailableBalance: 1000}, testSymbol(), testSession(), 50000, nil)
	assert.Nil(t, plan)
	assert.Equal(t, ReasonNeutral, reason)
}

func TestPlanInsufficientBalance(t *testing.T) {
	s := NewSizer(10, 0)
	plan, reason := s.Plan(buySignal(0.5), model.AccountState{AvailableBalance: 5}, testSymbol(), testSession(), 50000, nil)
	assert.Nil(t, plan)
	assert.Equal(t, ReasonInsufficientBalance, reason)
}

func TestPlanDrainedAccountIsInsufficientBalance(t *testing.T) {
	// No minimum-balance floor configured anywhere: a fully drained
	// account must still decline as insufficient balance, not fall
	// through to the size-rounding check.
	s := NewSizer(0, 0)
	plan, reason := s.Plan(buySignal(0.5), model.AccountState{AvailableBalance: 0}, testSymbol(), testSession(), 50000, nil)
	assert.Nil(t, plan)
	assert.Equal(t, ReasonInsufficientBalance, reason)
}

func TestPlanNeverExceedsCaps(t *testing.T) {
	sym := testSymbol()
	sym.MaxPositionSize = 100
	sym.RiskMultiplier = 50
	s := NewSizer(10, 250)

	plan, reason := s.Plan(buySignal(1.0), model.AccountState{AvailableBalance: 1_000_000}, sym, testSession(), 50000, nil)
	require.NotNil(t, plan, "unexpected no-op: %s", reason)
	assert.LessOrEqual(t, plan.Notional, 100.0, "per-symbol cap must hold regardless of inputs")

	sym.MaxPositionSize = 0
	plan, reason = s.Plan(buySignal(1.0), model.AccountState{AvailableBalance: 1_000_000}, sym, testSession(), 50000, nil)
	require.NotNil(t, plan, "unexpected no-op: %s", reason)
	assert.LessOrEqual(t, plan.Notional, 250.0, "global cap must hold when symbol cap is unset")
}

func TestPlanNoPyramiding(t *testing.T) {
	s := NewSizer(10, 0)
	existing := &model.Position{
		Symbol:     "BTC-USDT-SWAP",
		Side:       model.Long,
		Size:       0.01,
		EntryPrice: 48000,
		OpenedAt:   time.Now(),
	}

	plan, reason := s.Plan(buySignal(0.9), model.AccountState{AvailableBalance: 1000}, testSymbol(), testSession(), 50000, existing)
	assert.Nil(t, plan, "same-side signal on an open position must not pyramid")
	assert.Equal(t, ReasonSameSidePosition, reason)
}

func TestPlanReverseIsCompound(t *testing.T) {
	s := NewSizer(10, 0)
	existing := &model.Position{
		Symbol:     "SOL-USDT-SWAP",
		Side:       model.Long,
		Size:       1,
		EntryPrice: 150,
		OpenedAt:   time.Now(),
	}
	sym := testSymbol()
	sym.OKXSymbol = "SOL-USDT-SWAP"

	sig := model.CombinedSignal{Score: -0.6, Class: model.SignalSell, Threshold: 0.3}
	plan, reason := s.Plan(sig, model.AccountState{AvailableBalance: 1000}, sym, testSession(), 150, existing)
	require.NotNil(t, plan, "unexpected no-op: %s", reason)
	assert.Equal(t, model.Short, plan.Side)
	assert.True(t, plan.CloseFirst, "opposite-side signal must produce a close-then-reverse plan")
	assert.Greater(t, plan.StopLoss, plan.EntryPrice, "short stop-loss sits above entry")
	assert.Less(t, plan.TakeProfit, plan.EntryPrice, "short take-profit sits below entry")
}

func TestRoundSizeTruncatesToLotStep(t *testing.T) {
	s := NewSizer(10, 0)
	assert.InDelta(t, 0.012, s.roundSize(0.0129, 0.001), 1e-12)
	assert.Equal(t, 0.0, s.roundSize(0.0004, 0.001), "sub-step size rounds to zero")
}
