package model

import "time"

// Bar represents a single OHLCV candlestick.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Snapshot holds the bounded lookback window of bars for one symbol,
// captured at tick start. It is immutable once captured and replaced
// wholesale on the next tick.
type Snapshot struct {
	Symbol    string
	Bars      []Bar // oldest first
	LastPrice float64
	FetchedAt time.Time
}

// Close returns the most recent candle close, or 0 for an empty snapshot.
func (s *Snapshot) Close() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Price returns the freshest known price: the live ticker price when
// available, otherwise the last candle close.
func (s *Snapshot) Price() float64 {
	if s.LastPrice > 0 {
		return s.LastPrice
	}
	return s.Close()
}
