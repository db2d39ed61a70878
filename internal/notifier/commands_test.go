package notifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadiayoub/okx-bot/internal/engine"
	"github.com/shadiayoub/okx-bot/internal/exchange"
	"github.com/shadiayoub/okx-bot/internal/model"
	"github.com/shadiayoub/okx-bot/internal/recorder"
)

type silentNotifier struct{}

func (silentNotifier) Notify(string) {}

func newTestRouter(t *testing.T) (*CommandRouter, *exchange.Paper) {
	t.Helper()
	paper := exchange.NewPaper()
	paper.Account = model.AccountState{TotalBalance: 1200, AvailableBalance: 1000}
	sess := engine.NewSession(model.SessionSettings{
		Leverage:          10,
		RiskPerTrade:      0.05,
		MinSignalStrength: 0.3,
		StopLossPct:       0.02,
		TakeProfitPct:     0.04,
	})
	eng := engine.New(paper, sess, recorder.NewNoopRecorder(), silentNotifier{}, engine.DefaultOptions())
	return &CommandRouter{Engine: eng, Account: paper}, paper
}

func TestRouterLifecycleCommands(t *testing.T) {
	r, _ := newTestRouter(t)
	sess := r.Engine.Session()

	assert.Contains(t, r.Handle("/start"), "started")
	assert.Equal(t, model.StatusRunning, sess.Status())

	assert.Contains(t, r.Handle("/pause"), "paused")
	assert.Equal(t, model.StatusPaused, sess.Status())

	assert.Contains(t, r.Handle("/resume"), "resumed")
	assert.Equal(t, model.StatusRunning, sess.Status())

	assert.Contains(t, r.Handle("/stop"), "stopped")
	assert.Equal(t, model.StatusStopped, sess.Status())
}

func TestRouterRejectsIllegalTransition(t *testing.T) {
	r, _ := newTestRouter(t)

	reply := r.Handle("/resume")
	assert.Contains(t, reply, "cannot resume")
	assert.Equal(t, model.StatusStopped, r.Engine.Session().Status())
}

func TestRouterEmergencyAndReset(t *testing.T) {
	r, _ := newTestRouter(t)
	require.NoError(t, r.Engine.Session().Start())

	assert.Empty(t, r.Handle("/emergency"))
	assert.Equal(t, model.StatusEmergencyStopped, r.Engine.Session().Status())

	// Only /reset may leave the emergency state.
	assert.Contains(t, r.Handle("/start"), "cannot start")

	assert.Contains(t, r.Handle("/reset"), "Reset complete")
	assert.Equal(t, model.StatusStopped, r.Engine.Session().Status())
}

func TestRouterStatusReport(t *testing.T) {
	r, _ := newTestRouter(t)

	report := r.Handle("/status")
	assert.Contains(t, report, "STOPPED")
	assert.Contains(t, report, "1200.00 USDT")
	assert.Contains(t, report, "Open positions: 0")
}

func TestRouterPositionsEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Equal(t, "📦 No open positions", r.Handle("/positions"))
}

func TestRouterStripsBotMention(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Contains(t, r.Handle("/status@futures_bot"), "Session Status")
}

func TestRouterUnknownCommand(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Contains(t, r.Handle("/frobnicate"), "Unknown command")
	assert.Empty(t, r.Handle("plain chatter"), "non-command text gets no reply")
}

func TestFormatPositionsShowsProtectionState(t *testing.T) {
	positions := []model.Position{
		{Symbol: "BTC-USDT-SWAP", Side: model.Long, Size: 0.01, EntryPrice: 50000, StopLoss: 49000, TakeProfit: 52000},
		{Symbol: "SOL-USDT-SWAP", Side: model.Short, Size: 2, EntryPrice: 150, Unprotected: true, ProtectFailures: 2},
	}
	out := FormatPositions(positions, map[string]float64{"BTC-USDT-SWAP": 51000})

	assert.Contains(t, out, "BTC-USDT-SWAP")
	assert.Contains(t, out, "SL 49000.0000 / TP 52000.0000")
	assert.Contains(t, out, "uPnL +10.00")
	assert.True(t, strings.Contains(out, "unprotected (2 failed attempts)"))
}
