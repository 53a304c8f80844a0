package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/units"
	"github.com/username/nanopos/src/utils"
)

// BalanceResult holds the derived balances in atomic units.
type BalanceResult struct {
	Total decimal.Decimal
	Today decimal.Decimal
}

type balanceProcessorImpl struct {
	loc *time.Location
	now func() time.Time
}

// NewBalanceProcessor computes calendar days in loc.
func NewBalanceProcessor(loc *time.Location, now func() time.Time) BalanceProcessor {
	if now == nil {
		now = time.Now
	}
	return &balanceProcessorImpl{loc: loc, now: now}
}

// Calculate sums receives minus sends, and receives dated today. Dust that
// rounds to 0.00 is left out, as it is from the transaction list.
func (p *balanceProcessorImpl) Calculate(txs []model.Transaction) BalanceResult {
	res := BalanceResult{Total: decimal.Zero, Today: decimal.Zero}
	today := p.now()
	for _, tx := range txs {
		if IsDust(tx.Amount) {
			continue
		}
		if tx.Type == model.TypeReceive {
			res.Total = res.Total.Add(tx.Amount)
			if utils.SameDay(time.Unix(tx.Date, 0), today, p.loc) {
				res.Today = res.Today.Add(tx.Amount)
			}
		} else {
			res.Total = res.Total.Sub(tx.Amount)
		}
	}
	return res
}

// IsDust reports whether an atomic amount displays as 0.00.
func IsDust(atomic decimal.Decimal) bool {
	return units.RoundDisplay(units.ToDisplay(atomic)).IsZero()
}
