package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/achi777/cryptoTrade/internal/auth"
	"github.com/achi777/cryptoTrade/internal/model"
)

func TestClient_GetTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/ticker/BTC_USDT" {
			t.Errorf("path = %s, want /market/ticker/BTC_USDT", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ticker": map[string]any{
				"symbol":           "BTC_USDT",
				"last_price":       "43250.50",
				"price_change_24h": "2.5",
				"high_24h":         "44000",
				"low_24h":          "42000",
				"volume_24h":       "1234.5",
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, auth.StaticToken("test-token"))

	ticker, err := c.GetTicker(context.Background(), "BTC_USDT")
	if err != nil {
		t.Fatalf("GetTicker failed: %v", err)
	}
	if ticker.Symbol != "BTC_USDT" {
		t.Errorf("Symbol = %q, want BTC_USDT", ticker.Symbol)
	}
	if ticker.LastPrice != "43250.50" {
		t.Errorf("LastPrice = %q, want 43250.50", ticker.LastPrice)
	}
}

func TestClient_GetOrderBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("limit = %q, want 25", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"symbol": "ETH_USDT",
			"bids":   []map[string]string{{"price": "2000", "amount": "3.0"}},
			"asks":   []map[string]string{{"price": "2001", "amount": "1.5"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)

	book, err := c.GetOrderBook(context.Background(), "ETH_USDT", 25)
	if err != nil {
		t.Fatalf("GetOrderBook failed: %v", err)
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != "2000" {
		t.Errorf("Bids = %+v, want one level at 2000", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Amount != "1.5" {
		t.Errorf("Asks = %+v, want one level of 1.5", book.Asks)
	}
}

func TestClient_CreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Pair != "BTC_USDT" || req.Side != model.SideBuy {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Order created successfully",
			"order": map[string]any{
				"id":     42,
				"status": "open",
				"amount": req.Amount,
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, auth.StaticToken("t"))

	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Pair:   "BTC_USDT",
		Type:   model.OrderTypeLimit,
		Side:   model.SideBuy,
		Amount: "0.5",
		Price:  "43000",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != 42 {
		t.Errorf("ID = %d, want 42", order.ID)
	}
	if order.Status != model.StatusOpen {
		t.Errorf("Status = %q, want open", order.Status)
	}
}

func TestClient_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Insufficient balance"})
	}))
	defer server.Close()

	c := NewClient(server.URL, auth.StaticToken("t"))

	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Pair: "BTC_USDT"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "Insufficient balance" {
		t.Errorf("Message = %q, want server message", apiErr.Message)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"tickers": []any{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, WithRetries(3, time.Millisecond))

	if _, err := c.GetTickers(context.Background()); err != nil {
		t.Fatalf("GetTickers failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_NoRetryOnCommands(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, auth.StaticToken("t"), WithRetries(3, time.Millisecond))

	if _, err := c.CancelOrder(context.Background(), 7); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (commands must not be replayed)", got)
	}
}
