// Package fusion combines the technical signal set with the ML
// prediction into a single bounded directional score.
package fusion

import (
	"fmt"
	"math"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// weightTolerance bounds the float error accepted when checking the
// normalization invariant.
const weightTolerance = 1e-9

// Weights assigns each signal its contribution to the combined score.
// The seven weights must sum to exactly 1.0, which keeps the score in
// [-1,1] for any valid inputs.
type Weights struct {
	EMA       float64 `yaml:"ema"`
	RSI       float64 `yaml:"rsi"`
	Bollinger float64 `yaml:"bollinger"`
	MACD      float64 `yaml:"macd"`
	Volume    float64 `yaml:"volume"`
	Momentum  float64 `yaml:"momentum"`
	ML        float64 `yaml:"ml"`
}

// DefaultWeights keeps the relative ordering the models were tuned
// against, with a fifth of the score reserved for the ML term.
func DefaultWeights() Weights {
	return Weights{
		EMA:       0.25,
		RSI:       0.15,
		Bollinger: 0.12,
		MACD:      0.13,
		Volume:    0.08,
		Momentum:  0.07,
		ML:        0.20,
	}
}

// Sum returns the total of all seven weights.
func (w Weights) Sum() float64 {
	return w.EMA + w.RSI + w.Bollinger + w.MACD + w.Volume + w.Momentum + w.ML
}

// Validate enforces the normalization invariant. A violation is fatal at
// configuration load; the session must never reach RUNNING with it.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"ema": w.EMA, "rsi": w.RSI, "bollinger": w.Bollinger,
		"macd": w.MACD, "volume": w.Volume, "momentum": w.Momentum, "ml": w.ML,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative (%.4f): %w", name, v, model.ErrInvalidWeights)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("weights sum to %.6f: %w", w.Sum(), model.ErrInvalidWeights)
	}
	return nil
}

// Combine fuses the technical signals with the prediction. The ML term
// is the predicted value damped by its confidence, so a zero-confidence
// prediction degrades cleanly to a pure technical score. Stateless and
// bit-for-bit reproducible for identical inputs.
func Combine(set model.SignalSet, pred model.Prediction, w Weights, threshold float64) model.CombinedSignal {
	score := set.EMA*w.EMA +
		set.RSI*w.RSI +
		set.Bollinger*w.Bollinger +
		set.MACD*w.MACD +
		set.Volume*w.Volume +
		set.Momentum*w.Momentum +
		pred.Value*pred.Confidence*w.ML

	class := model.SignalNeutral
	switch {
	case score >= threshold:
		class = model.SignalBuy
	case score <= -threshold:
		class = model.SignalSell
	}

	return model.CombinedSignal{Score: score, Class: class, Threshold: threshold}
}
