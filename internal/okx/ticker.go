package okx

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const publicWSURL = "wss://ws.okx.com:8443/ws/v5/public"

// tickerStaleAfter bounds how old a websocket price may be before
// lookups fall back to REST.
const tickerStaleAfter = 30 * time.Second

type tickerEntry struct {
	price float64
	at    time.Time
}

// TickerFeed keeps the latest trade price per symbol from the public
// websocket. It reconnects with backoff until the context is cancelled.
type TickerFeed struct {
	url     string
	symbols []string

	mu     sync.RWMutex
	prices map[string]tickerEntry
}

// NewTickerFeed subscribes to the tickers channel for the given symbols.
func NewTickerFeed(symbols []string) *TickerFeed {
	return &TickerFeed{
		url:     publicWSURL,
		symbols: symbols,
		prices:  make(map[string]tickerEntry),
	}
}

// Price returns the latest live price for a symbol, if fresh enough.
func (f *TickerFeed) Price(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.prices[symbol]
	if !ok || time.Since(e.at) > tickerStaleAfter {
		return 0, false
	}
	return e.price, true
}

// Run connects and pumps ticker updates until ctx is done. Meant to be
// launched as a goroutine from main.
func (f *TickerFeed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := f.connectAndPump(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[WARN] ticker feed disconnected: %v, reconnecting in %v", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		return
	}
}

type wsSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsTickerMsg struct {
	Arg  wsSubscribeArg `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

func (f *TickerFeed) connectAndPump(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	args := make([]wsSubscribeArg, 0, len(f.symbols))
	for _, s := range f.symbols {
		args = append(args, wsSubscribeArg{Channel: "tickers", InstID: s})
	}
	sub := map[string]any{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Printf("[INFO] ticker feed subscribed to %d symbol(s)", len(f.symbols))

	// OKX drops idle connections after 30s of silence.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if string(raw) == "pong" {
			continue
		}

		var msg wsTickerMsg
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Arg.Channel != "tickers" {
			continue
		}
		now := time.Now()
		f.mu.Lock()
		for _, d := range msg.Data {
			if price, err := strconv.ParseFloat(d.Last, 64); err == nil && price > 0 {
				f.prices[d.InstID] = tickerEntry{price: price, at: now}
			}
		}
		f.mu.Unlock()
	}
}
