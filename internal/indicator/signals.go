package indicator

import (
	"fmt"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// Params configures the indicator windows. Defaults mirror the periods
// the models were trained against, so changing them is rarely advisable.
type Params struct {
	EMAFast         int     `yaml:"ema_fast"`
	EMASlow         int     `yaml:"ema_slow"`
	RSIPeriod       int     `yaml:"rsi_period"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerWidth  float64 `yaml:"bollinger_width"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	VolumePeriod    int     `yaml:"volume_period"`
	MomentumPct     float64 `yaml:"momentum_pct"`
}

// DefaultParams returns the standard indicator windows.
func DefaultParams() Params {
	return Params{
		EMAFast:         9,
		EMASlow:         21,
		RSIPeriod:       14,
		RSIOversold:     30,
		RSIOverbought:   70,
		BollingerPeriod: 20,
		BollingerWidth:  2.0,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		VolumePeriod:    20,
		MomentumPct:     0.01,
	}
}

// MinBars returns the smallest snapshot length Compute accepts:
// the slowest window plus one bar for the change-based signals.
func (p Params) MinBars() int {
	min := p.EMASlow
	for _, n := range []int{p.RSIPeriod, p.BollingerPeriod, p.MACDSlow, p.VolumePeriod} {
		if n > min {
			min = n
		}
	}
	return min + 1
}

// Validate rejects non-positive or inverted windows.
func (p Params) Validate() error {
	if p.EMAFast <= 0 || p.EMASlow <= p.EMAFast {
		return fmt.Errorf("ema windows must satisfy 0 < fast < slow, got %d/%d", p.EMAFast, p.EMASlow)
	}
	if p.RSIPeriod <= 0 {
		return fmt.Errorf("rsi_period must be positive, got %d", p.RSIPeriod)
	}
	if p.BollingerPeriod <= 1 || p.BollingerWidth <= 0 {
		return fmt.Errorf("invalid bollinger params %d/%.1f", p.BollingerPeriod, p.BollingerWidth)
	}
	if p.MACDFast <= 0 || p.MACDSlow <= p.MACDFast || p.MACDSignal <= 0 {
		return fmt.Errorf("invalid macd windows %d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	if p.VolumePeriod <= 0 {
		return fmt.Errorf("volume_period must be positive, got %d", p.VolumePeriod)
	}
	if p.MomentumPct <= 0 {
		return fmt.Errorf("momentum_pct must be positive, got %f", p.MomentumPct)
	}
	return nil
}

// Compute derives the six normalized signals from a snapshot. It is pure
// and deterministic: identical snapshots always yield identical output.
// Returns model.ErrInsufficientData when the window is shorter than
// MinBars.
func Compute(snap *model.Snapshot, p Params) (model.SignalSet, error) {
	if len(snap.Bars) < p.MinBars() {
		return model.SignalSet{}, fmt.Errorf("%s: %d bars, need %d: %w",
			snap.Symbol, len(snap.Bars), p.MinBars(), model.ErrInsufficientData)
	}

	c := closes(snap.Bars)
	v := volumes(snap.Bars)
	n := len(c)

	var set model.SignalSet

	// EMA crossover: fast crossing slow on the latest bar.
	fast := EMASeries(c, p.EMAFast)
	slow := EMASeries(c, p.EMASlow)
	crossUp := fast[n-2] < slow[n-2] && fast[n-1] > slow[n-1]
	crossDown := fast[n-2] > slow[n-2] && fast[n-1] < slow[n-1]
	switch {
	case crossUp:
		set.EMA = 1.0
	case crossDown:
		set.EMA = -1.0
	}

	// RSI extremes: oversold is bullish, overbought bearish.
	rsi, err := RSI(c, p.RSIPeriod)
	if err != nil {
		return model.SignalSet{}, err
	}
	switch {
	case rsi < p.RSIOversold:
		set.RSI = 1.0
	case rsi > p.RSIOverbought:
		set.RSI = -1.0
	}

	// Bollinger band touch.
	mid, err := SMA(c, p.BollingerPeriod)
	if err != nil {
		return model.SignalSet{}, err
	}
	sd, err := StdDev(c, p.BollingerPeriod)
	if err != nil {
		return model.SignalSet{}, err
	}
	price := c[n-1]
	switch {
	case price <= mid-p.BollingerWidth*sd:
		set.Bollinger = 1.0
	case price >= mid+p.BollingerWidth*sd:
		set.Bollinger = -1.0
	}

	// MACD histogram sign flip on the latest bar.
	prevHist, currHist, err := MACDHistogram(c, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return model.SignalSet{}, err
	}
	switch {
	case currHist > 0 && prevHist <= 0:
		set.MACD = 1.0
	case currHist < 0 && prevHist >= 0:
		set.MACD = -1.0
	}

	// Volume surge or drought against its rolling mean.
	avgVol, err := SMA(v, p.VolumePeriod)
	if err != nil {
		return model.SignalSet{}, err
	}
	switch {
	case avgVol > 0 && v[n-1] > avgVol*1.5:
		set.Volume = 1.0
	case avgVol > 0 && v[n-1] < avgVol*0.5:
		set.Volume = -1.0
	}

	// Single-bar momentum.
	if c[n-2] > 0 {
		change := c[n-1]/c[n-2] - 1
		switch {
		case change > p.MomentumPct:
			set.Momentum = 1.0
		case change < -p.MomentumPct:
			set.Momentum = -1.0
		}
	}

	return set, nil
}
