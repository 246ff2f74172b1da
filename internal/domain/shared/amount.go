package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Stored TON amounts are NUMERIC(30,9)
const (
	AmountScale         = 9
	AmountIntegerDigits = 21
)

// FitsAmount reports whether d has at most AmountIntegerDigits integer digits
// and no significant digit finer than AmountScale. Only the coefficient and
// exponent are inspected, so values like 1e7000000 are rejected without being
// expanded.
func FitsAmount(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}

	coef := d.Coefficient()
	digits := strings.TrimPrefix(coef.String(), "-")
	exp := int64(d.Exponent())
	for exp < 0 && strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exp++
	}

	if exp < -AmountScale {
		return false
	}
	return int64(len(digits))+exp <= AmountIntegerDigits
}
