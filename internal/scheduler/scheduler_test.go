package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadiayoub/okx-bot/internal/engine"
	"github.com/shadiayoub/okx-bot/internal/exchange"
	"github.com/shadiayoub/okx-bot/internal/fusion"
	"github.com/shadiayoub/okx-bot/internal/indicator"
	"github.com/shadiayoub/okx-bot/internal/model"
	"github.com/shadiayoub/okx-bot/internal/predictor"
	"github.com/shadiayoub/okx-bot/internal/recorder"
	"github.com/shadiayoub/okx-bot/internal/risk"
)

type silentNotifier struct{}

func (silentNotifier) Notify(string) {}

type captureRecorder struct {
	recorder.NoopRecorder
	mu      sync.Mutex
	signals []recorder.SignalRecord
}

func (r *captureRecorder) RecordSignal(rec *recorder.SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, *rec)
	return nil
}

func (r *captureRecorder) bySymbol(symbol string) []recorder.SignalRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorder.SignalRecord
	for _, s := range r.signals {
		if s.Symbol == symbol {
			out = append(out, s)
		}
	}
	return out
}

// surgeBars is a flat price series whose final bar carries a volume
// surge, so the volume signal fires +1. The test weights put everything
// on volume, so the other signals cannot move the score.
func surgeBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = model.Bar{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: 150, High: 150, Low: 150, Close: 150,
			Volume: 10,
		}
	}
	bars[n-1].Volume = 100
	return bars
}

func testSymbols() []model.SymbolConfig {
	return []model.SymbolConfig{
		{OKXSymbol: "SOL-USDT-SWAP", ModelSymbol: "SOLUSDT", DisplayName: "Solana", Enabled: true, RiskMultiplier: 1},
		{OKXSymbol: "BTC-USDT-SWAP", ModelSymbol: "BTCUSDT", DisplayName: "Bitcoin", Enabled: false, RiskMultiplier: 1},
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *exchange.Paper, *captureRecorder) {
	t.Helper()

	paper := exchange.NewPaper()
	paper.Prices["SOL-USDT-SWAP"] = 150
	paper.Bars["SOL-USDT-SWAP"] = surgeBars(60)
	paper.Account = model.AccountState{TotalBalance: 1000, AvailableBalance: 1000}

	sess := engine.NewSession(model.SessionSettings{
		AutoTrading:       true,
		Leverage:          10,
		RiskPerTrade:      0.05,
		MinSignalStrength: 0.3,
		StopLossPct:       0.02,
		TakeProfitPct:     0.04,
	})
	rec := &captureRecorder{}
	eng := engine.New(paper, sess, rec, silentNotifier{}, engine.DefaultOptions())

	// All fusion weight on the volume signal makes surgeBars a clean BUY.
	s := NewScheduler(context.Background(), Deps{
		Market:    paper,
		Account:   paper,
		Engine:    eng,
		Sizer:     risk.NewSizer(0, 0),
		Models:    predictor.NewRegistry(),
		Recorder:  rec,
		Symbols:   testSymbols(),
		Params:    indicator.DefaultParams(),
		Weights:   fusion.Weights{Volume: 1},
		Threshold: 0.3,
	})
	return s, paper, rec
}

func TestTickOpensPositionOnStrongSignal(t *testing.T) {
	s, paper, rec := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())

	s.Tick(context.Background())

	pos := s.deps.Engine.Position("SOL-USDT-SWAP")
	require.NotNil(t, pos, "strong buy signal must open a position")
	assert.Equal(t, model.Long, pos.Side)
	assert.Len(t, paper.EntryOrders("SOL-USDT-SWAP"), 1)

	signals := rec.bySymbol("SOL-USDT-SWAP")
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalBuy, signals[0].Combined.Class)
	assert.Empty(t, signals[0].NoOpReason)
	assert.Zero(t, signals[0].Prediction.Confidence, "no model means zero-confidence prediction")
}

func TestTickRecordsButDoesNotTradeWhenStopped(t *testing.T) {
	s, paper, rec := newTestScheduler(t)

	s.Tick(context.Background())

	assert.Empty(t, paper.EntryOrders("SOL-USDT-SWAP"))
	signals := rec.bySymbol("SOL-USDT-SWAP")
	require.Len(t, signals, 1, "signals are recorded even while stopped")
	assert.Equal(t, "session_not_trading", signals[0].NoOpReason)
}

func TestTickRecordsSizerDecline(t *testing.T) {
	s, paper, rec := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())
	paper.Account.AvailableBalance = 0

	s.Tick(context.Background())

	assert.Empty(t, paper.EntryOrders("SOL-USDT-SWAP"))
	signals := rec.bySymbol("SOL-USDT-SWAP")
	require.Len(t, signals, 1)
	assert.Equal(t, risk.ReasonInsufficientBalance, signals[0].NoOpReason)
}

func TestTickSkipsDisabledSymbols(t *testing.T) {
	s, _, rec := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())

	s.Tick(context.Background())

	assert.Empty(t, rec.bySymbol("BTC-USDT-SWAP"), "disabled symbols stay untouched")
}

func TestTickContainsPerSymbolFailure(t *testing.T) {
	s, paper, rec := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())

	s.deps.Symbols = append(s.deps.Symbols, model.SymbolConfig{
		OKXSymbol: "ETH-USDT-SWAP", ModelSymbol: "ETHUSDT", Enabled: true, RiskMultiplier: 1,
	})
	paper.FailData["ETH-USDT-SWAP"] = fmt.Errorf("feed down: %w", model.ErrDataUnavailable)

	s.Tick(context.Background())

	assert.NotNil(t, s.deps.Engine.Position("SOL-USDT-SWAP"), "healthy symbol still trades")
	assert.Empty(t, rec.bySymbol("ETH-USDT-SWAP"))
}

func TestTickRefusedWhileOneIsRunning(t *testing.T) {
	s, paper, _ := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())

	_, end, ok := s.deps.Engine.Session().BeginTick(context.Background())
	require.True(t, ok)
	defer end()

	s.Tick(context.Background())

	assert.Empty(t, paper.EntryOrders("SOL-USDT-SWAP"), "overlapping tick must be skipped")
}

func TestTickAfterEmergencyStopDoesNotTrade(t *testing.T) {
	s, paper, rec := newTestScheduler(t)
	require.NoError(t, s.deps.Engine.Session().Start())
	s.deps.Engine.EmergencyStop()

	s.Tick(context.Background())

	assert.Empty(t, paper.EntryOrders("SOL-USDT-SWAP"))
	signals := rec.bySymbol("SOL-USDT-SWAP")
	require.Len(t, signals, 1)
	assert.Equal(t, "session_not_trading", signals[0].NoOpReason)
}

type stubTrainer struct {
	mu      sync.Mutex
	symbols []string
	done    chan string
}

func (s *stubTrainer) Trigger(_ context.Context, symbol string) error {
	s.mu.Lock()
	s.symbols = append(s.symbols, symbol)
	s.mu.Unlock()
	s.done <- symbol
	return nil
}

func TestTriggerRetrainingHitsEnabledSymbolsOnly(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	trainer := &stubTrainer{done: make(chan string, 8)}
	s.deps.Trainer = trainer

	s.TriggerRetraining(context.Background())

	select {
	case sym := <-trainer.done:
		assert.Equal(t, "SOLUSDT", sym)
	case <-time.After(2 * time.Second):
		t.Fatal("retraining trigger never fired")
	}

	select {
	case sym := <-trainer.done:
		t.Fatalf("unexpected trigger for %s, BTC is disabled", sym)
	case <-time.After(100 * time.Millisecond):
	}
}
