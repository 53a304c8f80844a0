package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

func TestPriceOracleCachesPastDays(t *testing.T) {
	ctx := context.Background()
	db, w := openTestStore(t)
	provider := newFakePriceService("5.12")
	day := time.Date(2021, time.May, 8, 18, 24, 0, 0, time.UTC)

	oracle := NewPriceOracle(db, w, provider, cache.New(cache.NoExpiration, 0), time.UTC)
	for i := 0; i < 3; i++ {
		price, err := oracle.HistoricalPrice(ctx, "USD", day.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("HistoricalPrice() unexpected error = %v", err)
		}
		if !price.Equal(decimal.RequireFromString("5.12")) {
			t.Errorf("HistoricalPrice() = %s, want 5.12", price)
		}
	}
	if n := provider.calls("usd", "08-05-2021"); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}

	// a fresh oracle with an empty memo still finds the persisted row
	restarted := NewPriceOracle(db, w, provider, cache.New(cache.NoExpiration, 0), time.UTC)
	if _, err := restarted.HistoricalPrice(ctx, "usd", day); err != nil {
		t.Fatalf("HistoricalPrice() after restart unexpected error = %v", err)
	}
	if n := provider.calls("usd", "08-05-2021"); n != 1 {
		t.Errorf("provider calls after restart = %d, want 1", n)
	}
}

func TestPriceOracleDoesNotCacheToday(t *testing.T) {
	ctx := context.Background()
	db, w := openTestStore(t)
	provider := newFakePriceService("4.00")
	now := time.Date(2021, time.May, 8, 12, 0, 0, 0, time.UTC)

	oracle := NewPriceOracle(db, w, provider, nil, time.UTC).(*priceOracleImpl)
	oracle.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, err := oracle.HistoricalPrice(ctx, "usd", now.Add(-time.Hour)); err != nil {
			t.Fatalf("HistoricalPrice() unexpected error = %v", err)
		}
	}
	if n := provider.calls("usd", "08-05-2021"); n != 2 {
		t.Errorf("provider calls = %d, want 2 for today's quote", n)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nano_price`).Scan(&rows); err != nil {
		t.Fatalf("count prices: %v", err)
	}
	if rows != 0 {
		t.Errorf("persisted rows = %d, want 0", rows)
	}
}

func TestPriceOracleProviderFailure(t *testing.T) {
	db, w := openTestStore(t)
	provider := newFakePriceService("1")
	provider.err = ErrPriceUnavailable

	oracle := NewPriceOracle(db, w, provider, nil, time.UTC)
	_, err := oracle.HistoricalPrice(context.Background(), "usd", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("HistoricalPrice() error = %v, want ErrPriceUnavailable", err)
	}
	// the failure is not cached
	provider.err = nil
	if _, err := oracle.HistoricalPrice(context.Background(), "usd", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("HistoricalPrice() after recovery unexpected error = %v", err)
	}
}
