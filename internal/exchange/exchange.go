// Package exchange defines the boundary contracts the core trades
// through. The live implementation lives in internal/okx; Paper is the
// in-memory stand-in for tests and dry runs.
package exchange

import (
	"context"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// OrderResult reports a placed (and, for market orders, filled) order.
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	FillPrice     float64
}

// CloseResult reports a closed position.
type CloseResult struct {
	ExitPrice float64
}

// MarketData serves bounded candle windows per symbol. Failures surface
// as model.ErrDataUnavailable (wrapped).
type MarketData interface {
	Snapshot(ctx context.Context, symbol string, lookback int) (*model.Snapshot, error)
}

// OrderAPI places and closes orders. All failures are *model.ExchangeError.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, symbol string, side model.Side, size float64) (OrderResult, error)
	PlaceStopOrders(ctx context.Context, symbol string, side model.Side, size, stopLoss, takeProfit float64) error
	ClosePosition(ctx context.Context, symbol string) (CloseResult, error)
}

// AccountAPI reads the account once per tick.
type AccountAPI interface {
	State(ctx context.Context) (model.AccountState, error)
}

// Exchange is the full boundary the engine and scheduler depend on.
type Exchange interface {
	MarketData
	OrderAPI
	AccountAPI
}
