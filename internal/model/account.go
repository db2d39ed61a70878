package model

import "time"

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Opposite returns the reverse side.
func (s Side) Opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// AccountState is the exchange account view refreshed once at tick start.
// The core only reads it; balances change only through confirmed fills
// reported back by the exchange.
type AccountState struct {
	TotalBalance     float64
	AvailableBalance float64
	UnrealizedPnL    float64
	Equity           float64
	FetchedAt        time.Time
}

// Position is an open futures position. At most one exists per symbol.
// Unprotected marks a position whose stop-loss/take-profit orders failed
// to place; it is retried every tick until protected.
type Position struct {
	Symbol          string
	Side            Side
	Size            float64
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	OpenedAt        time.Time
	Unprotected     bool
	ProtectFailures int
}

// UnrealizedAt returns the mark-to-market P&L of the position at price.
func (p *Position) UnrealizedAt(price float64) float64 {
	diff := price - p.EntryPrice
	if p.Side == Short {
		diff = -diff
	}
	return diff * p.Size
}

// RealizedPnL records a closed position.
type RealizedPnL struct {
	Symbol     string
	Side       Side
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string // "manual", "reverse", "emergency", "stop", "take_profit"
	OpenedAt   time.Time
	ClosedAt   time.Time
}
