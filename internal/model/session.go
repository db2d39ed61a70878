package model

// SessionStatus is the trading-session lifecycle state.
type SessionStatus string

const (
	StatusStopped          SessionStatus = "STOPPED"
	StatusRunning          SessionStatus = "RUNNING"
	StatusPaused           SessionStatus = "PAUSED"
	StatusEmergencyStopped SessionStatus = "EMERGENCY_STOPPED"
)

// SessionSettings is the immutable per-tick copy of the session's
// trading parameters. The scheduler reads it once at tick start and
// never re-reads mid-tick.
type SessionSettings struct {
	AutoTrading       bool    `yaml:"auto_trading"`
	Leverage          float64 `yaml:"leverage"`
	RiskPerTrade      float64 `yaml:"risk_per_trade"`
	MinSignalStrength float64 `yaml:"min_signal_strength"`
	StopLossPct       float64 `yaml:"stop_loss_pct"`
	TakeProfitPct     float64 `yaml:"take_profit_pct"`
}
