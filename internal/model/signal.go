package model

// SignalSet holds the six normalized technical signals, each in [-1,1]
// with positive meaning bullish.
type SignalSet struct {
	EMA       float64
	RSI       float64
	Bollinger float64
	MACD      float64
	Volume    float64
	Momentum  float64
}

// Prediction is the opaque model output for one snapshot. Value is a
// normalized directional estimate in [-1,1]; Confidence is in [0,1].
type Prediction struct {
	Value        float64
	Confidence   float64
	ModelVersion string
}

// Classification is the direction a combined signal resolves to.
type Classification string

const (
	SignalBuy     Classification = "BUY"
	SignalSell    Classification = "SELL"
	SignalNeutral Classification = "NEUTRAL"
)

// CombinedSignal is the fused directional score plus its classification.
// Class is BUY iff Score >= Threshold, SELL iff Score <= -Threshold,
// NEUTRAL otherwise.
type CombinedSignal struct {
	Score     float64
	Class     Classification
	Threshold float64
}
