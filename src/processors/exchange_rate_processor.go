package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/units"
	"github.com/username/nanopos/src/utils"
)

// FiatValue converts atomic units to the display currency at price (fiat per
// Nano). The exact product is returned along with the cent-rounded value.
func FiatValue(atomic, price decimal.Decimal) (exact, rounded decimal.Decimal) {
	exact = units.ToDisplay(atomic).Mul(price)
	return exact, utils.RoundHalfUp(exact, units.DisplayPlaces)
}

// ExpectedNano is the Nano amount to request for a fiat total at price,
// rounded to cents of a Nano. A non-positive price yields zero.
func ExpectedNano(fiatTotal, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return utils.RoundHalfUp(fiatTotal.DivRound(price, 16), units.DisplayPlaces)
}
