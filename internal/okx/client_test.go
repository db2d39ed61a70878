package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shadiayoub/okx-bot/internal/model"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(Credentials{}, "1H")
	c.baseURL = srv.URL
	return c, srv
}

func TestSnapshotParsesAndReordersCandles(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/market/candles":
			// OKX returns newest first.
			w.Write([]byte(`{"code":"0","msg":"","data":[
				["1700003600000","101","102","100","101.5","20","0","0","1"],
				["1700000000000","100","101","99","100.5","10","0","0","1"]
			]}`))
		case "/api/v5/market/ticker":
			w.Write([]byte(`{"code":"0","msg":"","data":[{"last":"101.7"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	snap, err := c.Snapshot(context.Background(), "BTC-USDT-SWAP", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(snap.Bars))
	}
	if !snap.Bars[0].Time.Before(snap.Bars[1].Time) {
		t.Error("bars must be ordered oldest first")
	}
	if snap.Bars[1].Close != 101.5 {
		t.Errorf("expected latest close 101.5, got %v", snap.Bars[1].Close)
	}
	if snap.LastPrice != 101.7 {
		t.Errorf("expected live price 101.7, got %v", snap.LastPrice)
	}
}

func TestSnapshotWrapsDataUnavailable(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"instrument does not exist","data":[]}`))
	}))
	defer srv.Close()

	if _, err := c.Snapshot(context.Background(), "NOPE-USDT-SWAP", 100); !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestPlaceOrderBusinessErrorRetryable(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"50011","msg":"rate limit","data":[]}`))
	}))
	defer srv.Close()

	_, err := c.PlaceOrder(context.Background(), "BTC-USDT-SWAP", model.Long, 0.01)
	var ee *model.ExchangeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExchangeError, got %v", err)
	}
	if !ee.Retryable {
		t.Error("rate limit must be retryable")
	}

	if !model.IsRetryable(err) {
		t.Error("IsRetryable helper disagrees")
	}
}

func TestPlaceOrderServerErrorRetryable(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.PlaceOrder(context.Background(), "BTC-USDT-SWAP", model.Short, 0.01)
	if !model.IsRetryable(err) {
		t.Fatalf("5xx must map to a retryable ExchangeError, got %v", err)
	}
}

func TestStateParsesUSDTDetails(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{
			"totalEq":"1523.4",
			"details":[
				{"ccy":"BTC","availBal":"0.01","eq":"500","upl":"1"},
				{"ccy":"USDT","availBal":"950.5","eq":"1000.25","upl":"-12.5"}
			]
		}]}`))
	}))
	defer srv.Close()

	st, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.AvailableBalance != 950.5 {
		t.Errorf("expected available 950.5, got %v", st.AvailableBalance)
	}
	if st.TotalBalance != 1000.25 {
		t.Errorf("expected total 1000.25, got %v", st.TotalBalance)
	}
	if st.UnrealizedPnL != -12.5 {
		t.Errorf("expected upl -12.5, got %v", st.UnrealizedPnL)
	}
	if st.Equity != 1523.4 {
		t.Errorf("expected equity 1523.4, got %v", st.Equity)
	}
}
