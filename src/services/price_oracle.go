package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/utils"
)

const priceCacheKeyPrefix = "price_"

type priceOracleImpl struct {
	db       *sql.DB
	writer   *database.Writer
	provider PriceService
	memo     *cache.Cache
	loc      *time.Location
	now      func() time.Time
}

// NewPriceOracle puts the day-keyed price cache in front of provider. Past
// days are memoised in memo and persisted in nano_price. Today's quote moves
// and is always fetched.
func NewPriceOracle(db *sql.DB, writer *database.Writer, provider PriceService, memo *cache.Cache, loc *time.Location) PriceOracle {
	if memo == nil {
		memo = cache.New(cache.NoExpiration, 0)
	}
	if loc == nil {
		loc = time.Local
	}
	return &priceOracleImpl{db: db, writer: writer, provider: provider, memo: memo, loc: loc, now: time.Now}
}

func (o *priceOracleImpl) CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	return o.provider.CurrentPrice(ctx, strings.ToLower(currency))
}

// HistoricalPrice returns the quote for the calendar day of day. Concurrent
// misses for the same key may both reach the provider; the second insert is
// ignored by the unique index.
func (o *priceOracleImpl) HistoricalPrice(ctx context.Context, currency string, day time.Time) (decimal.Decimal, error) {
	currency = strings.ToLower(currency)
	local := day.In(o.loc)
	dayKey := local.Format(utils.DayKeyFormat)
	cacheable := !utils.SameDay(local, o.now(), o.loc)
	memoKey := fmt.Sprintf("%s%s_%s", priceCacheKeyPrefix, currency, dayKey)

	if cacheable {
		if v, found := o.memo.Get(memoKey); found {
			return v.(decimal.Decimal), nil
		}
		price, ok, err := model.GetCachedPrice(ctx, o.db, currency, dayKey)
		if err != nil {
			logger.FromContext(ctx).Warn("Reading cached price failed, asking provider", "currency", currency, "day", dayKey, "error", err)
		} else if ok {
			o.memo.Set(memoKey, price, cache.NoExpiration)
			return price, nil
		}
	}

	price, err := o.provider.HistoricalPrice(ctx, currency, local.Format(utils.DefaultDateFormat))
	if err != nil {
		return decimal.Zero, err
	}
	if !cacheable {
		return price, nil
	}

	o.memo.Set(memoKey, price, cache.NoExpiration)
	sample := model.PriceSample{Currency: currency, Price: price, Day: dayKey}
	if err := o.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := model.InsertPrice(ctx, db, sample)
		return err
	}); err != nil {
		logger.FromContext(ctx).Warn("Persisting historical price failed", "currency", currency, "day", dayKey, "error", err)
	}
	return price, nil
}
