// Package units converts ledger amounts between atomic units and the two
// decimal display forms used by the point of sale.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/utils"
)

// ErrInvalidAmount is returned for anything that is not a non-negative
// integer count of atomic units, or not a decimal display amount.
var ErrInvalidAmount = errors.New("invalid amount")

const (
	// AtomicExponent is the power of ten between one atomic unit and one Nano.
	AtomicExponent = 30
	// DisplayPlaces is the number of fraction digits shown to the operator.
	DisplayPlaces = 2
)

// ParseAtomic parses an integer decimal string of atomic units as sent by
// the node.
func ParseAtomic(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// ToDisplay converts atomic units into Nano without rounding.
func ToDisplay(atomic decimal.Decimal) decimal.Decimal {
	return atomic.Shift(-AtomicExponent)
}

// FromDisplay converts Nano into atomic units, dropping sub-atomic digits.
func FromDisplay(display decimal.Decimal) decimal.Decimal {
	return display.Shift(AtomicExponent).Truncate(0)
}

// RoundDisplay rounds a display amount half-up to DisplayPlaces.
func RoundDisplay(display decimal.Decimal) decimal.Decimal {
	return utils.RoundHalfUp(display, DisplayPlaces)
}

// ToDisplayAmount renders atomic units as a display string such as "05.00".
func ToDisplayAmount(atomic decimal.Decimal) string {
	return FormatDisplay(RoundDisplay(ToDisplay(atomic)))
}

// FormatAtomic is ToDisplayAmount for the string form used on the wire.
func FormatAtomic(s string) (string, error) {
	d, err := ParseAtomic(s)
	if err != nil {
		return "", err
	}
	return ToDisplayAmount(d), nil
}

// FormatDisplay formats d with at least two integer digits and exactly
// DisplayPlaces fraction digits, without grouping separators.
func FormatDisplay(d decimal.Decimal) string {
	s := d.Abs().StringFixed(DisplayPlaces)
	if dot := strings.IndexByte(s, '.'); dot < 2 {
		s = strings.Repeat("0", 2-dot) + s
	}
	if d.Round(DisplayPlaces).IsNegative() {
		return "-" + s
	}
	return s
}

// ParseDisplayAmount reads back a string produced by FormatDisplay or typed
// by the operator. Grouping commas are accepted.
func ParseDisplayAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatFiat renders a fiat amount as "24.70 USD".
func FormatFiat(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", FormatDisplay(utils.RoundHalfUp(amount, DisplayPlaces)), strings.ToUpper(currency))
}
