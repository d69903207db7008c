package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Money represents a monetary value stored in minor units (two decimals).
type Money = int64

// ErrInvalidAmount is returned when a decimal amount string cannot be parsed.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

// ParseAmount converts a decimal string such as "2.50" into minor units.
// At most two fractional digits are accepted; negative amounts are rejected.
func ParseAmount(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount: %w", ErrInvalidAmount)
	}
	if strings.HasPrefix(trimmed, "-") {
		return 0, fmt.Errorf("negative amount %q: %w", value, ErrInvalidAmount)
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("more than two decimals in %q: %w", value, ErrInvalidAmount)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var units Money
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed amount %q: %w", value, ErrInvalidAmount)
		}
		units = units*10 + Money(r-'0')
	}
	var cents Money
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed amount %q: %w", value, ErrInvalidAmount)
		}
		cents = cents*10 + Money(r-'0')
	}
	return units*100 + cents, nil
}

// FormatAmount renders minor units as a decimal string with two decimals.
func FormatAmount(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
