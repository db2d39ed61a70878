// Package okx implements the exchange boundary against the OKX v5 API.
package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shadiayoub/okx-bot/internal/exchange"
	"github.com/shadiayoub/okx-bot/internal/model"
)

const defaultBaseURL = "https://www.okx.com"

// Credentials holds the signed-request secrets.
type Credentials struct {
	APIKey     string `envconfig:"OKX_API_KEY"`
	APISecret  string `envconfig:"OKX_API_SECRET"`
	Passphrase string `envconfig:"OKX_PASSPHRASE"`
	Simulated  bool   `envconfig:"OKX_SIMULATED" default:"false"`
}

// Client talks to OKX v5 REST and satisfies exchange.Exchange. When a
// TickerFeed is attached, live websocket prices take precedence over
// REST ticker lookups.
type Client struct {
	baseURL string
	creds   Credentials
	bar     string // candle granularity, e.g. "1H"
	http    *http.Client
	feed    *TickerFeed
}

// NewClient builds a REST client. bar selects the candle granularity
// the strategy runs on.
func NewClient(creds Credentials, bar string) *Client {
	if bar == "" {
		bar = "1H"
	}
	return &Client{
		baseURL: defaultBaseURL,
		creds:   creds,
		bar:     bar,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// AttachFeed wires the websocket ticker feed into price lookups.
func (c *Client) AttachFeed(feed *TickerFeed) { c.feed = feed }

type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// retryableCodes are OKX business codes worth retrying: rate limits and
// transient matching-engine pressure.
var retryableCodes = map[string]bool{
	"50011": true, // rate limit
	"50013": true, // system busy
	"51054": true, // service temporarily unavailable
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.creds.APIKey != "" {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		mac := hmac.New(sha256.New, []byte(c.creds.APISecret))
		mac.Write([]byte(ts + method + path + string(payload)))
		req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	}
	if c.creds.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.ExchangeError{Code: "network", Msg: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.ExchangeError{Code: "network", Msg: err.Error(), Retryable: true}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &model.ExchangeError{
			Code:      strconv.Itoa(resp.StatusCode),
			Msg:       strings.TrimSpace(string(raw)),
			Retryable: true,
		}
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &model.ExchangeError{Code: "decode", Msg: err.Error(), Retryable: false}
	}
	if envelope.Code != "0" {
		return &model.ExchangeError{
			Code:      envelope.Code,
			Msg:       envelope.Msg,
			Retryable: retryableCodes[envelope.Code],
		}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &model.ExchangeError{Code: "decode", Msg: err.Error(), Retryable: false}
		}
	}
	return nil
}

// Snapshot fetches the candle window for a symbol. OKX returns candles
// newest first; the snapshot is reordered oldest first.
func (c *Client) Snapshot(ctx context.Context, symbol string, lookback int) (*model.Snapshot, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d", symbol, c.bar, lookback)
	var rows [][]string
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, fmt.Errorf("%s candles: %v: %w", symbol, err, model.ErrDataUnavailable)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty candle response: %w", symbol, model.ErrDataUnavailable)
	}

	bars := make([]model.Bar, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		bar := model.Bar{Time: time.UnixMilli(ms)}
		for j, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
			v, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				v = 0
			}
			*dst = v
		}
		bars = append(bars, bar)
	}

	last, err := c.lastPrice(ctx, symbol)
	if err != nil {
		// Candle close still serves as the price; log-free fallback.
		last = 0
	}

	return &model.Snapshot{
		Symbol:    symbol,
		Bars:      bars,
		LastPrice: last,
		FetchedAt: time.Now(),
	}, nil
}

// lastPrice prefers the websocket feed, falling back to the REST ticker.
func (c *Client) lastPrice(ctx context.Context, symbol string) (float64, error) {
	if c.feed != nil {
		if price, ok := c.feed.Price(symbol); ok {
			return price, nil
		}
	}
	var data []struct {
		Last string `json:"last"`
	}
	path := fmt.Sprintf("/api/v5/market/ticker?instId=%s", symbol)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &model.ExchangeError{Code: "empty", Msg: "no ticker data", Retryable: true}
	}
	return strconv.ParseFloat(data[0].Last, 64)
}

// State reads the USDT trading-account balance.
func (c *Client) State(ctx context.Context) (model.AccountState, error) {
	var data []struct {
		TotalEq string `json:"totalEq"`
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
			Eq       string `json:"eq"`
			Upl      string `json:"upl"`
		} `json:"details"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v5/account/balance?ccy=USDT", nil, &data); err != nil {
		return model.AccountState{}, err
	}

	var st model.AccountState
	st.FetchedAt = time.Now()
	if len(data) == 0 {
		return st, nil
	}
	st.Equity, _ = strconv.ParseFloat(data[0].TotalEq, 64)
	for _, d := range data[0].Details {
		if d.Ccy != "USDT" {
			continue
		}
		st.AvailableBalance, _ = strconv.ParseFloat(d.AvailBal, 64)
		st.TotalBalance, _ = strconv.ParseFloat(d.Eq, 64)
		st.UnrealizedPnL, _ = strconv.ParseFloat(d.Upl, 64)
	}
	return st, nil
}

type orderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	ClOrdID string `json:"clOrdId,omitempty"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
}

// PlaceOrder submits a cross-margin market order.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side model.Side, size float64) (exchange.OrderResult, error) {
	req := orderRequest{
		InstID:  symbol,
		TdMode:  "cross",
		ClOrdID: clientOrderID(),
		Side:    orderSide(side),
		OrdType: "market",
		Sz:      decimal.NewFromFloat(size).String(),
	}
	var data []struct {
		OrdID string `json:"ordId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", req, &data); err != nil {
		return exchange.OrderResult{}, err
	}

	result := exchange.OrderResult{ClientOrderID: req.ClOrdID}
	if len(data) > 0 {
		result.OrderID = data[0].OrdID
	}
	// Market orders fill at the prevailing price; report the freshest
	// one so position bookkeeping stays close to reality.
	if price, err := c.lastPrice(ctx, symbol); err == nil {
		result.FillPrice = price
	}
	return result, nil
}

type algoOrderRequest struct {
	InstID      string `json:"instId"`
	TdMode      string `json:"tdMode"`
	Side        string `json:"side"`
	OrdType     string `json:"ordType"`
	Sz          string `json:"sz"`
	SlTriggerPx string `json:"slTriggerPx"`
	SlOrdPx     string `json:"slOrdPx"`
	TpTriggerPx string `json:"tpTriggerPx"`
	TpOrdPx     string `json:"tpOrdPx"`
}

// PlaceStopOrders attaches a one-cancels-the-other stop-loss/take-profit
// pair to an open position. closeSide is the side that exits the
// position (sell for longs, buy for shorts).
func (c *Client) PlaceStopOrders(ctx context.Context, symbol string, closeSide model.Side, size, stopLoss, takeProfit float64) error {
	req := algoOrderRequest{
		InstID:      symbol,
		TdMode:      "cross",
		Side:        orderSide(closeSide),
		OrdType:     "oco",
		Sz:          decimal.NewFromFloat(size).String(),
		SlTriggerPx: decimal.NewFromFloat(stopLoss).String(),
		SlOrdPx:     "-1", // market on trigger
		TpTriggerPx: decimal.NewFromFloat(takeProfit).String(),
		TpOrdPx:     "-1",
	}
	return c.do(ctx, http.MethodPost, "/api/v5/trade/order-algo", req, nil)
}

// ClosePosition market-closes the whole cross position for the symbol.
func (c *Client) ClosePosition(ctx context.Context, symbol string) (exchange.CloseResult, error) {
	req := map[string]string{
		"instId":  symbol,
		"mgnMode": "cross",
	}
	if err := c.do(ctx, http.MethodPost, "/api/v5/trade/close-position", req, nil); err != nil {
		return exchange.CloseResult{}, err
	}
	price, err := c.lastPrice(ctx, symbol)
	if err != nil {
		price = 0
	}
	return exchange.CloseResult{ExitPrice: price}, nil
}

func orderSide(side model.Side) string {
	if side == model.Short {
		return "sell"
	}
	return "buy"
}

// clientOrderID produces an OKX-legal (alphanumeric, <=32 chars) id.
func clientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
