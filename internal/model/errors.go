package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core taxonomy. Per-symbol errors are contained
// and logged; only ErrInvalidWeights is fatal, at configuration load.
var (
	ErrInsufficientData    = errors.New("insufficient bars for indicator window")
	ErrModelUnavailable    = errors.New("no active model for symbol")
	ErrInvalidWeights      = errors.New("fusion weights do not sum to 1.0")
	ErrInsufficientBalance = errors.New("available balance below minimum threshold")
	ErrDataUnavailable     = errors.New("market data unavailable")
	ErrUnprotectedPosition = errors.New("position missing stop-loss/take-profit orders")
)

// FeatureMismatchError reports a feature vector whose shape disagrees
// with what the model artifact expects.
type FeatureMismatchError struct {
	Want int
	Got  int
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature vector length %d, model expects %d", e.Got, e.Want)
}

// ExchangeError wraps a failure from the exchange boundary. Retryable
// failures are retried with backoff up to a bounded count; the rest skip
// the symbol for the remainder of the tick.
type ExchangeError struct {
	Code      string
	Msg       string
	Retryable bool
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error %s: %s", e.Code, e.Msg)
}

// IsRetryable reports whether err is an ExchangeError marked retryable.
func IsRetryable(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee) && ee.Retryable
}
