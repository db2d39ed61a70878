package recorder

import (
	"github.com/shadiayoub/okx-bot/internal/model"
)

// SignalRecord is one fused evaluation for one symbol on one tick.
type SignalRecord struct {
	Symbol     string
	Price      float64
	Signals    model.SignalSet
	Prediction model.Prediction
	Combined   model.CombinedSignal
	NoOpReason string // empty when a plan was produced
}

// OrderRecord is one order submitted to the exchange.
type OrderRecord struct {
	Symbol   string
	Side     model.Side
	Size     float64
	Price    float64
	Notional float64
	Kind     string // "entry", "close", "reverse_close"
	Status   string // "filled", "failed"
	Detail   string
}

// Recorder persists trading history for the dashboard and analytics.
type Recorder interface {
	RecordSignal(rec *SignalRecord) error
	RecordOrder(rec *OrderRecord) error
	RecordPnL(rec *model.RealizedPnL) error
	RecordAlert(kind, message string) error
	Close() error
}
