package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(12, 2).
const (
	amountIntegerDigits = 10
	amountMinExponent   = -12
)

// MaxAmount is the largest value a money column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// AmountInRange reports whether |d| fits a money column. Only the
// coefficient length and the exponent are inspected, so a value such as
// 1e99999999 is refused without being expanded.
func AmountInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < amountMinExponent || exp > amountIntegerDigits {
		return false
	}
	if d.IsZero() {
		return true
	}
	if d.NumDigits()+int(exp) > amountIntegerDigits {
		return false
	}
	return d.Abs().LessThanOrEqual(MaxAmount)
}

var priceCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// ParsePrice reads a display price such as "1,200.50" or "$900". Values
// that do not parse, parse negative, or do not fit a money column count as
// zero; ok reports whether the raw text was usable as given. An empty price
// is zero and ok.
func ParsePrice(raw string) (price decimal.Decimal, ok bool) {
	cleaned := priceCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.Sign() < 0 || !AmountInRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

// SumPrices adds up prices leniently. onCoerced, when set, is called with
// every raw value that was counted as zero, including a price that would
// push the total past MaxAmount.
func SumPrices(prices []string, onCoerced func(raw string)) decimal.Decimal {
	total := decimal.Zero
	for _, raw := range prices {
		p, ok := ParsePrice(raw)
		if ok {
			next := total.Add(p)
			if next.Round(2).LessThanOrEqual(MaxAmount) {
				total = next
				continue
			}
		}
		if onCoerced != nil {
			onCoerced(raw)
		}
	}
	return total.Round(2)
}
