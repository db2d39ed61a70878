package predictor

import (
	"fmt"

	"github.com/shadiayoub/okx-bot/internal/indicator"
	"github.com/shadiayoub/okx-bot/internal/model"
)

// FeatureCount is the engineered vector width every artifact is trained
// against.
const FeatureCount = 10

// featureMinBars is the longest lookback any feature needs, plus one.
const featureMinBars = 27

// Features builds the engineered vector from a snapshot. The layout is
// frozen; retrained artifacts must keep consuming the same ten inputs:
//
//	0: 1-bar return          5: RSI(14), centered to [-1,1]
//	1: 5-bar return          6: MACD histogram / price
//	2: 10-bar return         7: Bollinger position in [0,1]
//	3: 10-bar volatility     8: EMA 9/21 spread / price
//	4: volume / 20-bar mean  9: 20-bar return
func Features(snap *model.Snapshot) ([]float32, error) {
	bars := snap.Bars
	if len(bars) < featureMinBars {
		return nil, fmt.Errorf("%s: %d bars, features need %d: %w",
			snap.Symbol, len(bars), featureMinBars, model.ErrInsufficientData)
	}

	n := len(bars)
	closes := make([]float64, n)
	vols := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		vols[i] = b.Volume
	}
	price := closes[n-1]

	ret := func(lag int) float64 {
		past := closes[n-1-lag]
		if past == 0 {
			return 0
		}
		return price/past - 1
	}

	vol10, err := indicator.StdDev(closes, 10)
	if err != nil {
		return nil, err
	}
	avgVol, err := indicator.SMA(vols, 20)
	if err != nil {
		return nil, err
	}
	volRatio := 0.0
	if avgVol > 0 {
		volRatio = vols[n-1] / avgVol
	}

	rsi, err := indicator.RSI(closes, 14)
	if err != nil {
		return nil, err
	}

	_, hist, err := indicator.MACDHistogram(closes, 12, 26, 9)
	if err != nil {
		return nil, err
	}

	mid, err := indicator.SMA(closes, 20)
	if err != nil {
		return nil, err
	}
	sd, err := indicator.StdDev(closes, 20)
	if err != nil {
		return nil, err
	}
	bbPos := 0.5
	if sd > 0 {
		lower := mid - 2*sd
		bbPos = (price - lower) / (4 * sd)
	}

	emaFast := indicator.EMASeries(closes, 9)
	emaSlow := indicator.EMASeries(closes, 21)
	emaSpread := 0.0
	if price > 0 {
		emaSpread = (emaFast[n-1] - emaSlow[n-1]) / price
	}

	histNorm := 0.0
	if price > 0 {
		histNorm = hist / price
	}
	volNorm := 0.0
	if price > 0 {
		volNorm = vol10 / price
	}

	return []float32{
		float32(ret(1)),
		float32(ret(5)),
		float32(ret(10)),
		float32(volNorm),
		float32(volRatio),
		float32(rsi/50 - 1),
		float32(histNorm),
		float32(bbPos),
		float32(emaSpread),
		float32(ret(20)),
	}, nil
}
