package model

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// PriceSample is a cached historical quote. Day is YYYY-MM-DD.
type PriceSample struct {
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
	Day      string          `json:"date"`
}

// GetCachedPrice looks up the quote for currency on day.
func GetCachedPrice(ctx context.Context, db DBTX, currency, day string) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := db.QueryRowContext(ctx, `SELECT price FROM nano_price WHERE currency = ? AND date = ?`, currency, day).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, storageErr("get cached price", err)
	}
	return price, true, nil
}

// InsertPrice caches a quote. A second insert for the same currency and day
// is ignored.
func InsertPrice(ctx context.Context, db DBTX, sample PriceSample) (bool, error) {
	res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO nano_price (currency, price, date) VALUES (?, ?, ?)`,
		sample.Currency, sample.Price, sample.Day)
	if err != nil {
		return false, storageErr("insert price", err)
	}
	return affected(res), nil
}
