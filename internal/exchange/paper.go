package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// PlacedOrder is one order the paper exchange accepted, kept for
// inspection by tests and dry runs.
type PlacedOrder struct {
	Symbol string
	Side   model.Side
	Size   float64
	Price  float64
	Kind   string // "entry", "stop", "close"
	At     time.Time
}

// Paper is a controllable in-memory exchange. Prices and failures are
// fixtures; orders fill synchronously at the configured price.
type Paper struct {
	mu      sync.Mutex
	Prices  map[string]float64
	Bars    map[string][]model.Bar
	Account model.AccountState
	Orders  []PlacedOrder

	// Failure injection. Consumed errors are returned once per Fail*
	// entry, in order.
	FailOrder map[string][]error
	FailStops map[string][]error
	FailClose map[string][]error
	FailData  map[string]error
}

func NewPaper() *Paper {
	return &Paper{
		Prices:    make(map[string]float64),
		Bars:      make(map[string][]model.Bar),
		FailOrder: make(map[string][]error),
		FailStops: make(map[string][]error),
		FailClose: make(map[string][]error),
		FailData:  make(map[string]error),
	}
}

func (p *Paper) Snapshot(_ context.Context, symbol string, lookback int) (*model.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.FailData[symbol]; err != nil {
		return nil, err
	}
	bars, ok := p.Bars[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, model.ErrDataUnavailable)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	return &model.Snapshot{
		Symbol:    symbol,
		Bars:      out,
		LastPrice: p.Prices[symbol],
		FetchedAt: time.Now(),
	}, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, symbol string, side model.Side, size float64) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, &model.ExchangeError{Code: "canceled", Msg: err.Error(), Retryable: false}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if errs := p.FailOrder[symbol]; len(errs) > 0 {
		err := errs[0]
		p.FailOrder[symbol] = errs[1:]
		return OrderResult{}, err
	}
	price := p.Prices[symbol]
	p.Orders = append(p.Orders, PlacedOrder{Symbol: symbol, Side: side, Size: size, Price: price, Kind: "entry", At: time.Now()})
	return OrderResult{
		OrderID:       fmt.Sprintf("paper-%d", len(p.Orders)),
		ClientOrderID: fmt.Sprintf("paper-cl-%d", len(p.Orders)),
		FillPrice:     price,
	}, nil
}

func (p *Paper) PlaceStopOrders(ctx context.Context, symbol string, side model.Side, size, stopLoss, takeProfit float64) error {
	if err := ctx.Err(); err != nil {
		return &model.ExchangeError{Code: "canceled", Msg: err.Error(), Retryable: false}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if errs := p.FailStops[symbol]; len(errs) > 0 {
		err := errs[0]
		p.FailStops[symbol] = errs[1:]
		return err
	}
	p.Orders = append(p.Orders, PlacedOrder{Symbol: symbol, Side: side, Size: size, Price: stopLoss, Kind: "stop", At: time.Now()})
	return nil
}

func (p *Paper) ClosePosition(ctx context.Context, symbol string) (CloseResult, error) {
	if err := ctx.Err(); err != nil {
		return CloseResult{}, &model.ExchangeError{Code: "canceled", Msg: err.Error(), Retryable: false}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if errs := p.FailClose[symbol]; len(errs) > 0 {
		err := errs[0]
		p.FailClose[symbol] = errs[1:]
		return CloseResult{}, err
	}
	price := p.Prices[symbol]
	p.Orders = append(p.Orders, PlacedOrder{Symbol: symbol, Size: 0, Price: price, Kind: "close", At: time.Now()})
	return CloseResult{ExitPrice: price}, nil
}

func (p *Paper) State(_ context.Context) (model.AccountState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.Account
	st.FetchedAt = time.Now()
	return st, nil
}

// EntryOrders returns the entry orders placed for a symbol, in order.
func (p *Paper) EntryOrders(symbol string) []PlacedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PlacedOrder
	for _, o := range p.Orders {
		if o.Symbol == symbol && o.Kind == "entry" {
			out = append(out, o)
		}
	}
	return out
}
