package indicator

import (
	"errors"
	"math"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// Series helpers shared by the signal computations. All are pure
// functions over the full bar window; none keep state between calls.

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// SMA computes the simple moving average of the trailing period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// StdDev computes the sample standard deviation of the trailing period values.
func StdDev(values []float64, period int) (float64, error) {
	if period <= 1 {
		return 0, errors.New("period must be > 1")
	}
	mean, err := SMA(values, period)
	if err != nil {
		return 0, err
	}
	var ss float64
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period-1)), nil
}

// EMASeries computes the exponential moving average over the whole input,
// seeded with the first value. Smoothing factor is 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// RSI computes the Wilder-smoothed relative strength index over the
// given period. Requires at least period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period+1 {
		return 0, model.ErrInsufficientData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// MACDHistogram returns the last two MACD histogram values
// (previous, current) for the given fast/slow/signal periods.
func MACDHistogram(values []float64, fast, slow, signal int) (prev, curr float64, err error) {
	if len(values) < slow+1 {
		return 0, 0, model.ErrInsufficientData
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	macd := make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := EMASeries(macd, signal)
	n := len(values)
	prev = macd[n-2] - signalLine[n-2]
	curr = macd[n-1] - signalLine[n-1]
	return prev, curr, nil
}
