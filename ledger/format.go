package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var maxCents = decimal.NewFromInt(math.MaxInt64)

type Currency struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

// CommonCurrencies backs the household default-currency picker.
var CommonCurrencies = []Currency{
	{Code: "USD", Label: "US Dollar", Symbol: "$"},
	{Code: "EUR", Label: "Euro", Symbol: "€"},
	{Code: "GBP", Label: "British Pound", Symbol: "£"},
	{Code: "CAD", Label: "Canadian Dollar", Symbol: "CA$"},
	{Code: "AUD", Label: "Australian Dollar", Symbol: "A$"},
	{Code: "JPY", Label: "Japanese Yen", Symbol: "¥"},
	{Code: "INR", Label: "Indian Rupee", Symbol: "₹"},
	{Code: "MXN", Label: "Mexican Peso", Symbol: "MX$"},
	{Code: "BRL", Label: "Brazilian Real", Symbol: "R$"},
	{Code: "SGD", Label: "Singapore Dollar", Symbol: "SGD "},
}

// ValidCurrencyCode reports whether code looks like an ISO 4217 code.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// FormatAmount renders cents as a plain two-decimal string: 1234 -> "12.34".
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FormatCurrency renders cents with the currency symbol when known, e.g.
// "$12.34", and falls back to "XYZ 12.34".
func FormatCurrency(cents int64, currency string) string {
	amount := decimal.New(cents, -2).Abs().StringFixed(2)
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	for _, c := range CommonCurrencies {
		if c.Code == currency {
			return sign + c.Symbol + amount
		}
	}
	return fmt.Sprintf("%s %s%s", currency, sign, amount)
}

// ParseToCents turns user input such as "12.50" or "$12" into cents,
// rounding half away from zero at the third decimal.
func ParseToCents(value string) (int64, error) {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	c := d.Shift(2).Round(0)
	if c.GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, value)
	}
	return c.IntPart(), nil
}
