package utils

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

// NormalizeCurrency lower-cases an ISO 4217 code and checks it is known.
// The price provider keys its quotes by lower-case code.
func NormalizeCurrency(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("currency code is empty")
	}
	if money.GetCurrency(strings.ToUpper(trimmed)) == nil {
		return "", fmt.Errorf("unknown currency code %q", code)
	}
	return strings.ToLower(trimmed), nil
}
