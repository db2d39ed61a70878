// Package predictor wraps the pretrained per-symbol model artifacts
// behind a single capability: predict(features) -> (value, confidence).
// The rest of the engine never learns what algorithm family produced an
// artifact; swapping model families needs no change elsewhere.
package predictor

import (
	"github.com/shadiayoub/okx-bot/internal/model"
)

// Predictor is the opaque model contract. Implementations must return a
// Value clamped to [-1,1] and a Confidence clamped to [0,1], and fail
// with *model.FeatureMismatchError when the vector shape disagrees with
// the artifact.
type Predictor interface {
	Predict(features []float32) (model.Prediction, error)
	Version() string
	Close() error
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
