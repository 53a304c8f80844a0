package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPriceServiceCurrentPrice(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(apiKeyHeader)
		w.Write([]byte(`{"id": "nano", "market_data": {"current_price": {"usd": 4.941, "eur": 4.1}}}`))
	}))
	defer srv.Close()

	svc := NewPriceService(PriceServiceOptions{BaseURL: srv.URL, APIKey: "demo", Timeout: time.Second, RatePerMinute: 60})
	price, err := svc.CurrentPrice(context.Background(), "USD")
	if err != nil {
		t.Fatalf("CurrentPrice() unexpected error = %v", err)
	}
	if !price.Equal(decimal.RequireFromString("4.941")) {
		t.Errorf("CurrentPrice() = %s, want 4.941", price)
	}
	if gotPath != "/coins/nano" {
		t.Errorf("path = %q, want /coins/nano", gotPath)
	}
	if gotKey != "demo" {
		t.Errorf("api key header = %q, want demo", gotKey)
	}
}

func TestPriceServiceHistoricalPrice(t *testing.T) {
	var gotPath, gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDate = r.URL.Query().Get("date")
		w.Write([]byte(`{"id": "nano", "market_data": {"current_price": {"usd": 5.12}}}`))
	}))
	defer srv.Close()

	svc := NewPriceService(PriceServiceOptions{BaseURL: srv.URL + "/", CoinID: "nano", RatePerMinute: 60})
	price, err := svc.HistoricalPrice(context.Background(), "usd", "08-05-2021")
	if err != nil {
		t.Fatalf("HistoricalPrice() unexpected error = %v", err)
	}
	if !price.Equal(decimal.RequireFromString("5.12")) {
		t.Errorf("HistoricalPrice() = %s, want 5.12", price)
	}
	if gotPath != "/coins/nano/history" || gotDate != "08-05-2021" {
		t.Errorf("request = %s date=%s", gotPath, gotDate)
	}
}

func TestPriceServiceUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error": "throttled"}`},
		{"no market data", http.StatusOK, `{"id": "nano"}`},
		{"unknown currency", http.StatusOK, `{"market_data": {"current_price": {"eur": 4.1}}}`},
		{"zero quote", http.StatusOK, `{"market_data": {"current_price": {"usd": 0}}}`},
		{"malformed", http.StatusOK, `{"market_data": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewPriceService(PriceServiceOptions{BaseURL: srv.URL, RatePerMinute: 60})
			if _, err := svc.CurrentPrice(context.Background(), "usd"); !errors.Is(err, ErrPriceUnavailable) {
				t.Errorf("CurrentPrice() error = %v, want ErrPriceUnavailable", err)
			}
		})
	}
}

func TestPriceServiceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := NewPriceService(PriceServiceOptions{BaseURL: url, Timeout: time.Second, RatePerMinute: 60})
	if _, err := svc.CurrentPrice(context.Background(), "usd"); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("CurrentPrice() error = %v, want ErrPriceUnavailable", err)
	}
}
