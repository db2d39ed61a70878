package predictor

import (
	"errors"
	"testing"
	"time"

	"github.com/shadiayoub/okx-bot/internal/model"
)

type stubPredictor struct {
	version string
	closed  bool
}

func (s *stubPredictor) Predict(features []float32) (model.Prediction, error) {
	if len(features) != FeatureCount {
		return model.Prediction{}, &model.FeatureMismatchError{Want: FeatureCount, Got: len(features)}
	}
	return model.Prediction{Value: 0.5, Confidence: 0.9, ModelVersion: s.version}, nil
}
func (s *stubPredictor) Version() string { return s.version }
func (s *stubPredictor) Close() error    { s.closed = true; return nil }

func TestRegistryActiveUnregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Active("BTCUSDT"); !errors.Is(err, model.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestRegistryActivateReplacesAndCloses(t *testing.T) {
	r := NewRegistry()
	v1 := &stubPredictor{version: "v1"}
	v2 := &stubPredictor{version: "v2"}

	r.Activate("BTCUSDT", v1)
	r.Activate("BTCUSDT", v2)

	if !v1.closed {
		t.Error("replaced model must be closed")
	}
	p, err := r.Active("BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Version() != "v2" {
		t.Errorf("expected v2 active, got %s", p.Version())
	}
}

func TestPredictFeatureMismatch(t *testing.T) {
	p := &stubPredictor{version: "v1"}
	_, err := p.Predict(make([]float32, FeatureCount-1))
	var fm *model.FeatureMismatchError
	if !errors.As(err, &fm) {
		t.Fatalf("expected FeatureMismatchError, got %v", err)
	}
	if fm.Want != FeatureCount {
		t.Errorf("expected want=%d, got %d", FeatureCount, fm.Want)
	}
}

func TestFeaturesShapeAndDeterminism(t *testing.T) {
	bars := make([]model.Bar, 40)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i%5)
		bars[i] = model.Bar{Time: base.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	snap := &model.Snapshot{Symbol: "BTC-USDT-SWAP", Bars: bars}

	a, err := Features(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != FeatureCount {
		t.Fatalf("expected %d features, got %d", FeatureCount, len(a))
	}
	b, _ := Features(snap)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("feature %d not deterministic: %v vs %v", i, a[i], b[i])
		}
	}

	short := &model.Snapshot{Symbol: "BTC-USDT-SWAP", Bars: bars[:10]}
	if _, err := Features(short); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
