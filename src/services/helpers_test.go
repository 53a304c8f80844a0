package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/database"
)

func openTestStore(t *testing.T) (*sql.DB, *database.Writer) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "pos.db"), database.Seed{
		RPCNode:   "http://localhost:7076",
		WSSServer: "ws://localhost:7078",
		Currency:  "usd",
	})
	if err != nil {
		t.Fatalf("InitDB() unexpected error = %v", err)
	}
	w := database.NewWriter(db, 16)
	w.Start()
	t.Cleanup(func() {
		w.Close()
		db.Close()
	})
	return db, w
}

// fakePriceService quotes a fixed price and counts provider calls.
type fakePriceService struct {
	mu         sync.Mutex
	price      decimal.Decimal
	err        error
	current    int
	historical map[string]int
}

func newFakePriceService(price string) *fakePriceService {
	return &fakePriceService{price: decimal.RequireFromString(price), historical: make(map[string]int)}
}

func (f *fakePriceService) CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current++
	return f.price, f.err
}

func (f *fakePriceService) HistoricalPrice(ctx context.Context, currency, date string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historical[currency+" "+date]++
	return f.price, f.err
}

func (f *fakePriceService) calls(currency, date string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historical[currency+" "+date]
}
